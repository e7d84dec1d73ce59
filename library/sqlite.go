package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the alternate backend: the same load/save-everything
// contract as FileStore, but the three collections live as tables in one
// SQLite file. SaveAll rewrites all rows inside a single transaction, so
// unlike the document store it cannot be left half-updated by a crash.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and
// applies schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The surrogate id column only preserves insertion order.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id TEXT NOT NULL,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS materials (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            category TEXT NOT NULL,
            stock INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id TEXT NOT NULL,
            title TEXT NOT NULL,
            lent_at TEXT NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Load() (*State, error) {
	st := &State{}

	rows, err := s.db.Query(`SELECT member_id, name FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		st.Members = append(st.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT title, category, stock FROM materials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.Title, &m.Category, &m.Stock); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		st.Materials = append(st.Materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT member_id, title, lent_at FROM loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Loan
		var lentAt string
		if err := rows.Scan(&l.MemberID, &l.Title, &lentAt); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		l.LentAt, err = time.Parse(time.RFC3339Nano, lentAt)
		if err != nil {
			return nil, WrapError(CodeDeserialization, err, fmt.Sprintf("malformed loan timestamp %q", lentAt))
		}
		st.Loans = append(st.Loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return st, nil
}

func (s *SQLiteStore) SaveAll(st *State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"loans", "materials", "members"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, m := range st.Members {
		if _, err := tx.Exec(`INSERT INTO members(member_id, name) VALUES(?,?)`, m.ID, m.Name); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	for _, m := range st.Materials {
		if _, err := tx.Exec(`INSERT INTO materials(title, category, stock) VALUES(?,?,?)`, m.Title, m.Category, m.Stock); err != nil {
			return fmt.Errorf("insert material: %w", err)
		}
	}
	for _, l := range st.Loans {
		lentAt := l.LentAt.UTC().Format(time.RFC3339Nano)
		if _, err := tx.Exec(`INSERT INTO loans(member_id, title, lent_at) VALUES(?,?,?)`, l.MemberID, l.Title, lentAt); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
	}

	return tx.Commit()
}
