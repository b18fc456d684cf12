package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragmas run on every open, outside any transaction.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

type migration struct {
	version int
	stmt    string
}

// migrations upgrade the base schema (version 0) in order. user_version
// records the last one applied.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_audit_case_number ON audit_entries(case_number)`},
}

func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Outcome is how a command invocation ended.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeDenied       Outcome = "denied"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeLoadError    Outcome = "load_error"
	OutcomeExists       Outcome = "already_exists"
	OutcomePersistError Outcome = "persist_error"
	OutcomeError        Outcome = "error"
)

// Entry is one journaled command invocation.
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	At         time.Time `json:"at"`
	Command    string    `json:"command"`
	UserID     string    `json:"user_id,omitempty"`
	UserName   string    `json:"user_name,omitempty"`
	GuildID    string    `json:"guild_id,omitempty"`
	CaseNumber string    `json:"case_number,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
}

// Journal is the durable audit log.
type Journal struct {
	db  *sql.DB
	ids IDGenerator
	now func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerator overrides the UUIDv7 entry ID generator (for testing).
func WithIDGenerator(g IDGenerator) Option {
	return func(j *Journal) {
		j.ids = g
	}
}

// WithClock overrides time.Now for the "at" column (for testing).
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Open creates or opens the SQLite journal at path and brings its schema
// up to date. Opening an existing journal again is safe.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit journal %s: %w", path, err)
	}
	// One connection: SQLite has a single writer and the pragmas are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open audit journal %s: %w", path, err)
	}

	j := &Journal{
		db:  db,
		ids: UUIDv7Generator{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores e and returns it with ID, Seq and At filled in.
// A caller-supplied ID or At is kept.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = j.ids.Generate()
	}
	if e.At.IsZero() {
		e.At = j.now()
	}
	e.At = e.At.UTC()

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO audit_entries
		(id, at, command, user_id, user_name, guild_id, case_number, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.At.Format(time.RFC3339Nano),
		e.Command,
		e.UserID,
		e.UserName,
		e.GuildID,
		e.CaseNumber,
		string(e.Outcome),
		e.Detail,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	e.Seq = seq
	return e, nil
}

// Recent returns up to limit entries, newest first.
//
// Returns an empty slice (not nil) if the journal is empty.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, id, at, command, user_id, user_name, guild_id, case_number, outcome, detail
		FROM audit_entries
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			at      string
			outcome string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &at, &e.Command, &e.UserID, &e.UserName,
			&e.GuildID, &e.CaseNumber, &outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", at, err)
		}
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func setup(ctx context.Context, db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema setup: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schemaVersion() {
		return fmt.Errorf("schema version %d is newer than supported version %d", version, schemaVersion())
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		version = m.version
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return tx.Commit()
}
