// Package store persists analysis history and per-user saved items.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite handle shared by analysis history and the SQLite
// saved-items backend. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // writers take the write lock; SQLite allows one writer
	now func() time.Time
}

const memoryDSN = "file::memory:?cache=shared"

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT,
	parse_mode TEXT NOT NULL,
	title TEXT,
	result TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_post ON analyses(post_id, created_at DESC);

CREATE TABLE IF NOT EXISTS saved_items (
	user_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	title TEXT,
	payload TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, item_id)
);
CREATE INDEX IF NOT EXISTS idx_saved_expires ON saved_items(expires_at);
`

// Open opens (creating if needed) the database at dbPath and applies the
// schema. ":memory:" gives a shared in-memory database for tests. File
// databases run in WAL mode. Timestamps are stored as unix nanoseconds.
func Open(dbPath string) (*Store, error) {
	memory := dbPath == ":memory:"

	dsn := dbPath
	if memory {
		dsn = memoryDSN
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// every pooled connection must see the same in-memory database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close waits for in-flight writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
