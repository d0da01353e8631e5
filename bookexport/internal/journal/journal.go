// CLAUDE:SUMMARY SQLite export journal: one row per export attempt (status, size, omitted assets, duration), recent listing and retention pruning.
// Package journal records every export attempt in SQLite.
//
// Recording is best effort for callers: the orchestrator logs a failed
// Record and carries on.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/asset"
	"github.com/hazyhaar/bookpress/dbopen"
)

const Schema = `
CREATE TABLE IF NOT EXISTS exports (
	id           TEXT PRIMARY KEY,
	format       TEXT NOT NULL,
	title        TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	bytes        INTEGER NOT NULL DEFAULT 0,
	omitted_json TEXT NOT NULL DEFAULT '[]',
	artifact_key TEXT NOT NULL DEFAULT '',
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_created ON exports(created_at);
`

// Status of an export attempt.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("journal: export not found")

// Entry is one journal row.
type Entry struct {
	ID          string           `json:"id"`
	Format      string           `json:"format"`
	Title       string           `json:"title"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	Bytes       int              `json:"bytes"`
	Omitted     []asset.Omission `json:"omitted,omitempty"`
	ArtifactKey string           `json:"artifact_key,omitempty"`
	Duration    time.Duration    `json:"duration"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Journal is the export history store.
type Journal struct {
	db    *sql.DB
	owned bool
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db, owned: true}, nil
}

// New wraps an existing database and ensures the schema exists.
func New(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database when the journal opened it.
func (j *Journal) Close() error {
	if j.owned {
		return j.db.Close()
	}
	return nil
}

// Record inserts an entry. CreatedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	omitted := e.Omitted
	if omitted == nil {
		omitted = []asset.Omission{}
	}
	raw, err := json.Marshal(omitted)
	if err != nil {
		return fmt.Errorf("journal: encode omitted: %w", err)
	}
	_, err = dbopen.Exec(ctx, j.db, `
		INSERT INTO exports (id, format, title, status, error, bytes, omitted_json, artifact_key, duration_ms, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Format, e.Title, e.Status, e.Error, e.Bytes, string(raw), e.ArtifactKey,
		e.Duration.Milliseconds(), e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", e.ID, err)
	}
	return nil
}

const selectCols = `id, format, title, status, error, bytes, omitted_json, artifact_key, duration_ms, created_at`

// Recent returns the latest entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM exports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Get returns one entry.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM exports WHERE id = ?`, id)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	var n int64
	err := dbopen.RunTx(ctx, j.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM exports WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Entry, error) {
	var e Entry
	var omitted string
	var durMS, created int64
	err := s.Scan(&e.ID, &e.Format, &e.Title, &e.Status, &e.Error, &e.Bytes, &omitted, &e.ArtifactKey, &durMS, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	if err := json.Unmarshal([]byte(omitted), &e.Omitted); err != nil {
		return nil, fmt.Errorf("journal: decode omitted for %s: %w", e.ID, err)
	}
	if len(e.Omitted) == 0 {
		e.Omitted = nil
	}
	e.Duration = time.Duration(durMS) * time.Millisecond
	e.CreatedAt = time.UnixMilli(created)
	return &e, nil
}
