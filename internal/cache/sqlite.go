package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
	"ppv/internal/utils"
)

// SQLiteStore persists partitions in a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and initializes the schema
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates the cache table if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			partition TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (partition, key)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Partition returns the named partition
func (s *SQLiteStore) Partition(name string) Partition {
	return &sqlitePartition{db: s.db, name: name}
}

// Count returns the number of entries in a partition
func (s *SQLiteStore) Count(ctx context.Context, partition string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries WHERE partition = ?", partition).Scan(&n)
	return n, err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlitePartition struct {
	db   *sql.DB
	name string
}

func (p *sqlitePartition) Get(ctx context.Context, key string) (string, bool) {
	var value string
	err := p.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE partition = ? AND key = ?", p.name, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			utils.Warnf("cache read %s/%s failed: %v", p.name, key, err)
		}
		return "", false
	}
	return value, true
}

func (p *sqlitePartition) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO cache_entries (partition, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		p.name, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache write %s/%s: %w", p.name, key, err)
	}
	return nil
}

func (p *sqlitePartition) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE partition = ?", p.name); err != nil {
		return fmt.Errorf("cache clear %s: %w", p.name, err)
	}
	return nil
}

// Verify interface compliance at compile time
var (
	_ Store   = (*SQLiteStore)(nil)
	_ Counter = (*SQLiteStore)(nil)
)
