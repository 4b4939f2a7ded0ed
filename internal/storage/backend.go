// Package storage persists the widget's session record and display state
// as one JSON blob under a fixed key.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/patrickmn/go-cache"
)

// Backend is a durable string key-value store.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// SQLiteBackend keeps values in a single kv table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens the SQLite database at dbPath and creates tables if they don't exist.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the value for key. Missing keys report ok=false.
func (b *SQLiteBackend) Get(key string) (string, bool, error) {
	var value string
	err := b.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value for key.
func (b *SQLiteBackend) Set(key, value string) error {
	_, err := b.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *SQLiteBackend) Delete(key string) error {
	if _, err := b.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// MemoryBackend keeps values for the life of the process.
type MemoryBackend struct {
	cache *cache.Cache
}

// NewMemoryBackend creates an empty in-memory backend. Entries never expire.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: cache.New(cache.NoExpiration, 0)}
}

func (b *MemoryBackend) Get(key string) (string, bool, error) {
	if x, found := b.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (b *MemoryBackend) Set(key, value string) error {
	b.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.cache.Delete(key)
	return nil
}

func (b *MemoryBackend) Close() error {
	b.cache.Flush()
	return nil
}
