package library

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends selectable through LOANS_BACKEND.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config carries everything tunable from the environment: JSON documents
// under ./data, a 7-day loan period and a 1500-per-day fine by default.
type Config struct {
	DataDir    string        `envconfig:"LOANS_DATA_DIR" default:"data"`
	Backend    string        `envconfig:"LOANS_BACKEND" default:"json"`
	LoanPeriod time.Duration `envconfig:"LOANS_LOAN_PERIOD" default:"168h"`
	FinePerDay int64         `envconfig:"LOANS_FINE_PER_DAY" default:"1500"`
	LogLevel   string        `envconfig:"LOANS_LOG_LEVEL" default:"info"`
	LogFormat  string        `envconfig:"LOANS_LOG_FORMAT" default:"console"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	switch cfg.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendJSON, BackendSQLite)
	}
	if cfg.LoanPeriod <= 0 {
		return nil, fmt.Errorf("loan period must be positive, got %s", cfg.LoanPeriod)
	}
	return &cfg, nil
}
