package icebreakr

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database recording checkout sessions, so the success
// page can tell a returning buyer which email to verify.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the success page read while a checkout is being written;
	// writers wait on busy instead of failing.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS checkouts (
    session_id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkouts_email ON checkouts(email);
`)
	return err
}

// RecordCheckout upserts a checkout session. Emails are normalized to lowercase.
func (s *Store) RecordCheckout(r CheckoutRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO checkouts (session_id, email, created_at) VALUES (?, ?, ?)`,
		r.SessionID, strings.ToLower(strings.TrimSpace(r.Email)), r.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// GetCheckout returns the checkout recorded under sessionID, or
// sql.ErrNoRows.
func (s *Store) GetCheckout(sessionID string) (CheckoutRecord, error) {
	var email, created string
	err := s.db.QueryRow(`SELECT email, created_at FROM checkouts WHERE session_id = ?`, sessionID).
		Scan(&email, &created)
	if err != nil {
		return CheckoutRecord{}, err
	}
	createdAt, _ := time.Parse(time.RFC3339, created)
	return CheckoutRecord{SessionID: sessionID, Email: email, CreatedAt: createdAt}, nil
}
