// Package sqlite implements status.Tracker on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/vectorize/status"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingestions (
	ingestion_id TEXT PRIMARY KEY,
	source_type  TEXT NOT NULL DEFAULT '',
	source_name  TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// Tracker stores lifecycle records in one table.
type Tracker struct {
	db  *sql.DB
	now func() time.Time
}

var _ status.Tracker = (*Tracker)(nil)

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Tracker, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Tracker{db: db, now: time.Now}, nil
}

func (t *Tracker) Create(ctx context.Context, rec status.Record) error {
	now := t.now().UTC().UnixMicro()
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO ingestions (ingestion_id, source_type, source_name, state, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)
		ON CONFLICT (ingestion_id) DO NOTHING`,
		rec.IngestionID, rec.SourceType, rec.SourceName, string(status.StatePending), now, now)
	if err != nil {
		return fmt.Errorf("creating ingestion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", status.ErrExists, rec.IngestionID)
	}
	return nil
}

// transition updates the state only when the current state may move to to
// and is listed in allowed. The condition is part of the UPDATE, so
// concurrent transitions cannot both succeed.
func (t *Tracker) transition(ctx context.Context, id string, to status.State, reason string, allowed ...status.State) error {
	if len(allowed) == 0 {
		allowed = status.States()
	}
	args := []any{string(to), reason, t.now().UTC().UnixMicro(), id}
	var placeholders []string
	for _, from := range allowed {
		if status.CanTransition(from, to) {
			placeholders = append(placeholders, "?")
			args = append(args, string(from))
		}
	}
	if len(placeholders) == 0 {
		return fmt.Errorf("%w: no state may move to %s", status.ErrInvalidTransition, to)
	}

	res, err := t.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE ingestions SET state = ?, error = ?, updated_at = ?
		WHERE ingestion_id = ? AND state IN (%s)`, strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return fmt.Errorf("updating state: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("updating state: %w", err)
	} else if n > 0 {
		return nil
	}

	var current string
	err = t.db.QueryRowContext(ctx, `SELECT state FROM ingestions WHERE ingestion_id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", status.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if err := status.CheckTransitionFrom(id, status.State(current), to, allowed...); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s changed state concurrently", status.ErrInvalidTransition, id)
}

func (t *Tracker) MarkRunning(ctx context.Context, id string) error {
	return t.transition(ctx, id, status.StateRunning, "")
}

func (t *Tracker) Claim(ctx context.Context, id string, from ...status.State) error {
	return t.transition(ctx, id, status.StateRunning, "", from...)
}

func (t *Tracker) MarkCompleted(ctx context.Context, id string) error {
	return t.transition(ctx, id, status.StateCompleted, "")
}

func (t *Tracker) MarkFailed(ctx context.Context, id string, reason string) error {
	return t.transition(ctx, id, status.StateFailed, reason)
}

const selectColumns = `ingestion_id, source_type, source_name, state, error, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*status.Record, error) {
	var (
		rec              status.Record
		state            string
		created, updated int64
	)
	if err := row.Scan(&rec.IngestionID, &rec.SourceType, &rec.SourceName, &state, &rec.Error, &created, &updated); err != nil {
		return nil, err
	}
	rec.State = status.State(state)
	rec.CreatedAt = time.UnixMicro(created).UTC()
	rec.UpdatedAt = time.UnixMicro(updated).UTC()
	return &rec, nil
}

func (t *Tracker) Get(ctx context.Context, id string) (*status.Record, error) {
	row := t.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM ingestions WHERE ingestion_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", status.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ingestion: %w", err)
	}
	return rec, nil
}

func (t *Tracker) List(ctx context.Context) ([]*status.Record, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM ingestions ORDER BY created_at DESC, ingestion_id`)
	if err != nil {
		return nil, fmt.Errorf("listing ingestions: %w", err)
	}
	defer rows.Close()

	var out []*status.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("reading ingestion: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (t *Tracker) Close() error {
	return t.db.Close()
}
