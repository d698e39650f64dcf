// Package exceptions persists operator-approved path overrides. A path
// that matches the sensitive rule table but is covered by an unexpired
// exception is allowed through the guard.
package exceptions

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/secretguard/internal/rules"
)

const schema = `
CREATE TABLE IF NOT EXISTS exceptions (
  path TEXT PRIMARY KEY,
  reason TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  expires_at TEXT
);`

// Exception is one approved override.
type Exception struct {
	Path      string
	Reason    string
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = never expires
}

// Store manages exceptions in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the exception database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("exceptions: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("exceptions: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("exceptions: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records an exception for the normalized form of path. A zero ttl
// means the exception never expires. Adding the same path again
// replaces the previous entry.
func (s *Store) Add(path, reason string, ttl time.Duration) error {
	norm := rules.Normalize(path)
	if norm == "" {
		return fmt.Errorf("exceptions: empty path")
	}

	now := time.Now().UTC()
	var expires any
	if ttl > 0 {
		expires = now.Add(ttl).Format(time.RFC3339)
	}

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO exceptions (path, reason, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		norm, reason, now.Format(time.RFC3339), expires,
	)
	if err != nil {
		return fmt.Errorf("exceptions: add %s: %w", norm, err)
	}
	return nil
}

// Remove deletes the exception for the normalized form of path,
// reporting whether one existed.
func (s *Store) Remove(path string) (bool, error) {
	norm := rules.Normalize(path)
	res, err := s.db.Exec(`DELETE FROM exceptions WHERE path = ?`, norm)
	if err != nil {
		return false, fmt.Errorf("exceptions: remove %s: %w", norm, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Covers reports whether an unexpired exception exists for the
// normalized form of path.
func (s *Store) Covers(path string) (bool, error) {
	norm := rules.Normalize(path)
	if norm == "" {
		return false, nil
	}

	var expires sql.NullString
	err := s.db.QueryRow(`SELECT expires_at FROM exceptions WHERE path = ?`, norm).Scan(&expires)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exceptions: query %s: %w", norm, err)
	}
	if !expires.Valid {
		return true, nil
	}
	exp, err := time.Parse(time.RFC3339, expires.String)
	if err != nil {
		return false, fmt.Errorf("exceptions: bad expiry for %s: %w", norm, err)
	}
	return time.Now().UTC().Before(exp), nil
}

// List returns all exceptions, expired ones included, sorted by path.
func (s *Store) List() ([]Exception, error) {
	rows, err := s.db.Query(`SELECT path, reason, created_at, expires_at FROM exceptions ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("exceptions: list: %w", err)
	}
	defer rows.Close()

	var out []Exception
	for rows.Next() {
		var e Exception
		var created string
		var expires sql.NullString
		if err := rows.Scan(&e.Path, &e.Reason, &created, &expires); err != nil {
			return nil, fmt.Errorf("exceptions: scan: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			e.CreatedAt = t
		}
		if expires.Valid {
			if t, err := time.Parse(time.RFC3339, expires.String); err == nil {
				e.ExpiresAt = &t
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exceptions: list: %w", err)
	}
	return out, nil
}

// Prune deletes expired exceptions and returns how many were removed.
func (s *Store) Prune() (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM exceptions WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("exceptions: prune: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
