package library

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// Store is the durable mapping between the in-memory State and its external
// representation. Load reads the whole state at startup; SaveAll rewrites it
// completely after every mutation. No other component touches the backing
// documents.
type Store interface {
	Load() (*State, error)
	SaveAll(*State) error
	Close() error
}

// OpenStore builds the store selected by the config.
func OpenStore(cfg *Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "loans.db"))
	default:
		return NewFileStore(cfg.DataDir)
	}
}

// One document per collection.
const (
	membersFile   = "members.json"
	materialsFile = "materials.json"
	loansFile     = "loans.json"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore keeps each collection in its own JSON document under dir. A
// missing document is an empty collection; a present document that does not
// parse into the record shape is a DESERIALIZATION error.
type FileStore struct {
	dir string
}

// NewFileStore ensures dir exists and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load() (*State, error) {
	st := &State{}
	if err := readDocument(filepath.Join(s.dir, membersFile), &st.Members); err != nil {
		return nil, err
	}
	if err := readDocument(filepath.Join(s.dir, materialsFile), &st.Materials); err != nil {
		return nil, err
	}
	if err := readDocument(filepath.Join(s.dir, loansFile), &st.Loans); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *FileStore) SaveAll(st *State) error {
	if err := writeDocument(filepath.Join(s.dir, membersFile), st.Members); err != nil {
		return err
	}
	if err := writeDocument(filepath.Join(s.dir, materialsFile), st.Materials); err != nil {
		return err
	}
	return writeDocument(filepath.Join(s.dir, loansFile), st.Loans)
}

func (s *FileStore) Close() error { return nil }

func readDocument(path string, dest any) error {
	raw, err := os.ReadFile(path)
	if stdErrors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := codec.Unmarshal(raw, dest); err != nil {
		return WrapError(CodeDeserialization, err, fmt.Sprintf("malformed document %s", filepath.Base(path)))
	}
	return nil
}

// writeDocument rewrites path through a temp file and rename so a crash
// mid-write never leaves a half-written document behind.
func writeDocument(path string, records any) error {
	raw, err := codec.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
