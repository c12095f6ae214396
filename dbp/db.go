// Package dbp provides access to local storage.
package dbp

import (
	"database/sql"
	"errors"
	"time"
)

// CreateTablesStmts contains needed sql stmts to setup required tables
var CreateTablesStmts = []string{
	"CREATE TABLE IF NOT EXISTS `kv` (`key`	TEXT PRIMARY KEY,`value`	BLOB NOT NULL,`updated`	INTEGER NOT NULL)",
}

// SetupTables creates the kv table
func SetupTables(db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Store is a sqlite backed key-value store
type Store struct {
	DB *sql.DB
}

// Get returns the value stored under key or nil when key is absent
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores value under key, replacing any previous value
func (s *Store) Set(key string, value []byte) error {
	_, err := s.DB.Exec("INSERT OR REPLACE INTO kv (key, value, updated) VALUES (?, ?, ?)", key, value, time.Now().Unix())
	return err
}

// Clear removes key and its value
func (s *Store) Clear(key string) error {
	_, err := s.DB.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}
