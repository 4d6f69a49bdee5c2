// Package store persists the resolved roster between runs. The conversation
// pass re-derives conversation ids and service ids from the export every run;
// the cache exists so commands like `sigmd people` can answer without the
// export present.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Napageneral/sigmd/internal/config"
	"github.com/Napageneral/sigmd/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS persons (
	slug TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	service_id TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);
`

// Store is a sqlite-backed cache of resolved persons.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the cache location inside the data directory.
func DefaultPath() (string, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sigmd.db"), nil
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas for performance + concurrency.
	// WAL allows concurrent readers while a writer is active.
	// busy_timeout reduces SQLITE_BUSY errors under contention.
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SavePeople upserts the roster, keyed by slug.
func (s *Store) SavePeople(people []*model.Person) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO persons (slug, first_name, last_name, full_name, mobile,
			conversation_id, service_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			full_name = excluded.full_name,
			mobile = excluded.mobile,
			conversation_id = excluded.conversation_id,
			service_id = excluded.service_id,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range people {
		if p.Slug == "" {
			continue
		}
		if _, err := stmt.Exec(p.Slug, p.FirstName, p.LastName, p.FullName,
			p.Mobile, p.ConversationID, p.ServiceID, now); err != nil {
			return fmt.Errorf("failed to upsert person %s: %w", p.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadPeople returns the cached roster ordered by slug.
func (s *Store) LoadPeople() ([]model.Person, error) {
	rows, err := s.db.Query(`
		SELECT slug, first_name, last_name, full_name, mobile,
			conversation_id, service_id
		FROM persons
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.Slug, &p.FirstName, &p.LastName, &p.FullName,
			&p.Mobile, &p.ConversationID, &p.ServiceID); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}

	return people, rows.Err()
}
