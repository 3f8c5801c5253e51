// Package audit persists a record of every completed device-proxy
// request to a local SQLite database, for the optional dashboard.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"
)

var validate = validator.New()

// Entry is one completed request, as recorded after the subprocess
// I/O loop finishes (or the request fails before that point).
type Entry struct {
	ID         string    `db:"id"         validate:"required"`
	Command    string    `db:"command"    validate:"required"`
	Argv       string    `db:"argv"       validate:"required"`
	ExitCode   int       `db:"exit_code"`
	HadExit    bool      `db:"had_exit"`
	ClientAddr string    `db:"client_addr"`
	Stdout     string    `db:"stdout"`
	Stderr     string    `db:"stderr"`
	Error      string    `db:"error"`
	DurationMS int64     `db:"duration_ms"`
	StartedAt  time.Time `db:"started_at"`
}

// Store is a write-mostly log of Entry rows backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database at dsn and ensures its
// schema exists. A "sqlite://" prefix on dsn, if present, is trimmed.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: opening database: %w", err)
	}

	//nolint: noctx
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id TEXT NOT NULL PRIMARY KEY,
			command TEXT NOT NULL,
			argv TEXT NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			had_exit INTEGER NOT NULL DEFAULT 0,
			client_addr TEXT NOT NULL DEFAULT '',
			stdout TEXT NOT NULL DEFAULT '',
			stderr TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL
		) STRICT;
	`)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("audit: creating requests table: %w", err)
	}

	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("audit: closing database: %w", err)
	}

	return nil
}

// Record inserts entry, stripping ANSI escapes from captured stdio
// and minting an id if the caller hasn't set one.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = gonanoid.Must()
	}

	entry.Stdout = stripANSI(entry.Stdout)
	entry.Stderr = stripANSI(entry.Stderr)

	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("audit: invalid entry: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
			(id, command, argv, exit_code, had_exit, client_addr, stdout, stderr, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, entry.Command, entry.Argv, entry.ExitCode, entry.HadExit,
		entry.ClientAddr, entry.Stdout, entry.Stderr, entry.Error,
		// fixed-width fraction, so that text order in Recent is time order
		entry.DurationMS, entry.StartedAt.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("audit: inserting request: %w", err)
	}

	return nil
}

// Recent returns up to limit most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []struct {
		Entry
		StartedAtText string `db:"started_at"`
	}

	err := sqlscan.Select(ctx, s.db, &rows, `
		SELECT id, command, argv, exit_code, had_exit, client_addr, stdout, stderr, error, duration_ms, started_at
		FROM requests
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: selecting recent requests: %w", err)
	}

	entries := make([]Entry, 0, len(rows))

	for _, row := range rows {
		entry := row.Entry
		entry.StartedAt, _ = time.Parse(time.RFC3339Nano, row.StartedAtText)
		entries = append(entries, entry)
	}

	return entries, nil
}
