package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// Store wraps the local SQLite database holding forum metadata, stored
// torrent rows and run bookkeeping.
type Store struct {
	db *sqlx.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS forums (
        id INTEGER PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        topic_id INTEGER NOT NULL DEFAULT 0,
        author_id INTEGER NOT NULL DEFAULT 0,
        author_post_id INTEGER NOT NULL DEFAULT 0,
        post_ids TEXT NOT NULL DEFAULT '[]',
        quantity INTEGER NOT NULL DEFAULT 0,
        size INTEGER NOT NULL DEFAULT 0
    );`,
	`CREATE TABLE IF NOT EXISTS topics (
        id INTEGER PRIMARY KEY,
        forum_id INTEGER NOT NULL,
        name TEXT NOT NULL DEFAULT '',
        size INTEGER NOT NULL DEFAULT 0,
        status INTEGER NOT NULL DEFAULT 0,
        keeping_priority INTEGER NOT NULL DEFAULT 1
    );`,
	`CREATE INDEX IF NOT EXISTS idx_topics_forum ON topics(forum_id);`,
	`CREATE TABLE IF NOT EXISTS updates (
        marker INTEGER PRIMARY KEY,
        updated_at INTEGER NOT NULL
    );`,
}

// InitDB opens the database at dbPath, creating the file and the schema
// when they do not exist yet.
func InitDB(dbPath string) (*Store, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SelectCount returns the number of rows in the given table. Used to
// gate forum reporting on the presence of scan data.
func (s *Store) SelectCount(table string) (int64, error) {
	var count int64
	if err := s.db.Get(&count, fmt.Sprintf("SELECT COUNT(1) FROM %s", table)); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
