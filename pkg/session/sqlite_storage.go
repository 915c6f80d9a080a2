package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultSQLiteName is the database file created under DefaultDir.
const DefaultSQLiteName = "session.db"

const (
	kvSchema = `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`
	kvGet    = `SELECT value FROM kv WHERE key = ?`
	kvSet    = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	kvDelete = `DELETE FROM kv WHERE key = ?`
)

// SQLiteStorage persists values in a kv table of a local SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStorage opens (creating if needed) the database at path.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve session dir: %w", err)
		}
		path = filepath.Join(dir, DefaultSQLiteName)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteStorage{db: db, path: path}, nil
}

// Path returns the database location.
func (s *SQLiteStorage) Path() string { return s.path }

func (s *SQLiteStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(kvGet, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query failed: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(key, value string) error {
	if _, err := s.db.Exec(kvSet, key, value); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(key string) error {
	if _, err := s.db.Exec(kvDelete, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
