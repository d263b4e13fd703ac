// Package store holds the persistence collaborator implementations behind
// the model.Store contract.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jobsift/jobsift/internal/model"
)

// SQLiteStore persists normalized listings keyed by canonical URL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the listings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS listings (
		url         TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		company     TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT,
		source      TEXT,
		posted_date DATE,
		first_seen  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating listings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ExistingURLs returns every canonical URL already in the store, used to
// seed a run's dedup collector.
func (s *SQLiteStore) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url FROM listings")
	if err != nil {
		return nil, fmt.Errorf("loading existing urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scanning url row: %w", err)
		}
		urls[url] = struct{}{}
	}
	return urls, rows.Err()
}

// Add inserts a listing. A canonical URL that already exists is a no-op, so
// Add is safe to call fire-and-forget within a run.
func (s *SQLiteStore) Add(ctx context.Context, l model.Listing) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO listings (url, title, company, description, location, source, posted_date, first_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.URL, l.Title, l.Company, l.Description, nullable(l.Location), l.Source, l.PostedDate, l.FirstSeen,
	)
	if err != nil {
		return fmt.Errorf("adding listing %s: %w", l.URL, err)
	}
	return nil
}

// Listings returns every persisted listing, newest first. Records without a
// posted date sort after dated ones.
func (s *SQLiteStore) Listings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, company, description, COALESCE(location, ''), COALESCE(source, ''), posted_date, first_seen
		 FROM listings
		 ORDER BY posted_date IS NULL, posted_date DESC, first_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading listings: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		var posted sql.NullTime
		if err := rows.Scan(&l.URL, &l.Title, &l.Company, &l.Description, &l.Location, &l.Source, &posted, &l.FirstSeen); err != nil {
			return nil, fmt.Errorf("scanning listing row: %w", err)
		}
		if posted.Valid {
			t := posted.Time
			l.PostedDate = &t
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Count returns the number of persisted listings.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
