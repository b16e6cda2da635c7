// Package snapshot keeps questionnaire drafts in a local sqlite database so a coach can close the
// browser and resume later.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"alcyxob/coach-app/internal/questionnaire"
)

var _ questionnaire.Snapshotter = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the owner's snapshot.
func (s *Store) Save(ctx context.Context, owner string, snap questionnaire.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO questionnaire_snapshots(owner, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
	payload=excluded.payload,
	updated_at=excluded.updated_at`,
		owner, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the owner's snapshot; false when none is stored.
func (s *Store) Load(ctx context.Context, owner string) (questionnaire.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM questionnaire_snapshots WHERE owner = ?`, owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return questionnaire.Snapshot{}, false, nil
	}
	if err != nil {
		return questionnaire.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snap questionnaire.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return questionnaire.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Clear removes the owner's snapshot. Clearing nothing is not an error.
func (s *Store) Clear(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM questionnaire_snapshots WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
