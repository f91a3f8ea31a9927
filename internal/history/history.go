// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a cross-session index of generated
// artifacts in a local SQLite database. The index is advisory: writes
// are best-effort and a failed insert never blocks a generation task.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrDatabaseError = errors.New("database error")
	ErrInvalidKind   = errors.New("invalid artifact kind")
)

// =============================================================================
// ARTIFACT INDEX
// =============================================================================

// Artifact kinds. These match the artifact subdirectory names.
const (
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
)

// Artifact is one indexed generation result.
type Artifact struct {
	ID        int64
	Kind      string
	Session   string
	Prompt    string
	Filename  string
	FileSize  int64
	CreatedAt time.Time
}

// Index is the artifact database. SQLite supports a single writer, so
// the connection pool is pinned to one connection.
type Index struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	session    TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	filename   TEXT NOT NULL,
	file_size  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind);
CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session);
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at DESC);
`

// Open opens (or creates) the artifact index at dbPath.
func Open(dbPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Index{db: db, path: dbPath}, nil
}

// Close releases the database connection.
func (ix *Index) Close() error {
	if ix.db != nil {
		return ix.db.Close()
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// validKind reports whether kind names a known artifact kind.
func validKind(kind string) bool {
	return kind == KindImage || kind == KindVideo || kind == KindAudio
}

// Record inserts one artifact into the index.
func (ix *Index) Record(ctx context.Context, a Artifact) error {
	if !validKind(a.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, a.Kind)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO artifacts (kind, session, prompt, filename, file_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.Kind, a.Session, a.Prompt, a.Filename, a.FileSize, a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// ListOptions filters List results. Zero values mean no filter.
type ListOptions struct {
	Kind    string
	Session string
	Limit   int
}

// List returns artifacts newest first, applying any filters in opts.
func (ix *Index) List(ctx context.Context, opts ListOptions) ([]Artifact, error) {
	query := "SELECT id, kind, session, prompt, filename, file_size, created_at FROM artifacts"
	var args []any
	var conds []string

	if opts.Kind != "" {
		if !validKind(opts.Kind) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKind, opts.Kind)
		}
		conds = append(conds, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Session != "" {
		conds = append(conds, "session = ?")
		args = append(args, opts.Session)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	return ix.scan(ctx, query, args...)
}

// Search returns artifacts whose prompt contains the given term,
// newest first.
func (ix *Index) Search(ctx context.Context, term string, limit int) ([]Artifact, error) {
	if limit <= 0 {
		limit = 100
	}
	return ix.scan(ctx, `
		SELECT id, kind, session, prompt, filename, file_size, created_at
		FROM artifacts
		WHERE prompt LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, "%"+escapeLike(term)+"%", limit)
}

// Sessions returns the distinct session IDs present in the index,
// newest first.
func (ix *Index) Sessions(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT session FROM artifacts
		GROUP BY session
		ORDER BY MAX(created_at) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Count returns the number of indexed artifacts of the given kind, or
// all artifacts if kind is empty.
func (ix *Index) Count(ctx context.Context, kind string) (int, error) {
	var count int
	var err error
	if kind == "" {
		err = ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artifacts").Scan(&count)
	} else {
		err = ix.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM artifacts WHERE kind = ?", kind).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return count, nil
}

func (ix *Index) scan(ctx context.Context, query string, args ...any) ([]Artifact, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var created int64
		if err := rows.Scan(&a.ID, &a.Kind, &a.Session, &a.Prompt,
			&a.Filename, &a.FileSize, &created); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		a.CreatedAt = time.Unix(created, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE metacharacters in a user-supplied term.
func escapeLike(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
