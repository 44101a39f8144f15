// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citelink/pkg/types"
)

// SQLite stores the cache in a single table of a SQLite database. It suits
// caches shared by several article directories, where rewriting one JSON
// file per lookup gets slow.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and its schema.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS citation_cache (
		key TEXT PRIMARY KEY,
		authors TEXT NOT NULL,
		year INTEGER NOT NULL,
		doi TEXT,
		url TEXT,
		timestamp TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// Load reads every row.
func (s *SQLite) Load() (map[string]types.CacheEntry, error) {
	rows, err := s.db.Query(`SELECT key, authors, year, doi, url, timestamp FROM citation_cache`)
	if err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]types.CacheEntry)
	for rows.Next() {
		var (
			key, authors, ts string
			year             int
			doi, url         sql.NullString
		)
		if err := rows.Scan(&key, &authors, &year, &doi, &url, &ts); err != nil {
			return nil, fmt.Errorf("scanning cache row: %w", err)
		}
		entries[key] = types.CacheEntry{
			Authors:   authors,
			Year:      year,
			DOI:       doi.String,
			URL:       url.String,
			Timestamp: parseTimestamp(ts),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cache rows: %w", err)
	}
	return entries, nil
}

// Save replaces the table contents in one transaction.
func (s *SQLite) Save(entries map[string]types.CacheEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM citation_cache`); err != nil {
		return fmt.Errorf("clearing cache table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO citation_cache (key, authors, year, doi, url, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for key, e := range entries {
		if _, err := stmt.Exec(key, e.Authors, e.Year, nullable(e.DOI), nullable(e.URL),
			e.Timestamp.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache: %w", err)
	}
	return nil
}

// Remove deletes every row. The database file itself is kept.
func (s *SQLite) Remove() error {
	if _, err := s.db.Exec(`DELETE FROM citation_cache`); err != nil {
		return fmt.Errorf("clearing cache table: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
