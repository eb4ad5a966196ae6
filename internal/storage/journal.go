package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"checkin-companion/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY,
	scan_id     TEXT NOT NULL,
	target_kind TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	email       TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scans_target ON scans (target_kind, target_id);
CREATE INDEX IF NOT EXISTS scans_created ON scans (created_at);
`

// Entry is one presented scan outcome
type Entry struct {
	ID         string
	ScanID     string
	TargetKind models.TargetKind
	TargetID   string
	Email      string
	Outcome    models.Outcome
	Message    string
	CreatedAt  time.Time
}

// Journal is an append-only record of scan outcomes kept on the device
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (and creates if needed) the journal database at path
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an entry, filling in the id and timestamp when missing
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO scans (id, scan_id, target_kind, target_id, email, outcome, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ScanID, string(e.TargetKind), e.TargetID, e.Email, string(e.Outcome), e.Message, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, scan_id, target_kind, target_id, email, outcome, message, created_at
		 FROM scans ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    string
			outcome string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.ScanID, &kind, &e.TargetID, &e.Email, &outcome, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.TargetKind = models.TargetKind(kind)
		e.Outcome = models.Outcome(outcome)
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByOutcome tallies the outcomes recorded for one session or event
func (j *Journal) CountByOutcome(ctx context.Context, kind models.TargetKind, targetID string) (map[models.Outcome]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM scans WHERE target_kind = ? AND target_id = ? GROUP BY outcome`,
		string(kind), targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[models.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
