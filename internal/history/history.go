// Package history keeps a sqlite log of export runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/link270/fbx-analyzer/internal/export"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned for unknown run ids.
var ErrNotFound = errors.New("export run not found")

// Run is one recorded export.
type Run struct {
	ID          string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	Mode        string          `json:"mode"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	FinalState  string          `json:"final_state"`
	Duration    string          `json:"duration"`
	Error       string          `json:"error,omitempty"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
}

// Succeeded reports whether the run reached Done.
func (r Run) Succeeded() bool {
	return r.FinalState == string(export.StateDone)
}

// Store persists export runs to a single SQLite table, one row per run
// with the full diagnostics as a JSON blob.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// Open opens or creates the history database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if path == "" {
		path = "scenetool-history.db"
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		mode TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		final_state TEXT NOT NULL,
		duration TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		diagnostics BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, path: path, log: log}, nil
}

// Record stores one finished run. Recording the same run id again
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, d *export.Diagnostics) error {
	payload, err := d.Marshal("json")
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs(id,started_at,mode,source,destination,final_state,duration,error,diagnostics)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, mode=excluded.mode, source=excluded.source,
			destination=excluded.destination, final_state=excluded.final_state, duration=excluded.duration,
			error=excluded.error, diagnostics=excluded.diagnostics`,
		d.RunID, d.StartedAt.UTC().Format(timeLayout), string(d.Mode), d.Source, d.Destination,
		string(d.Final()), d.Duration, d.Error, payload)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", d.RunID, err)
	}
	return nil
}

// ExportFinished records the run. Failures are logged, never returned, so
// a broken history database cannot fail an export.
func (s *Store) ExportFinished(ctx context.Context, d *export.Diagnostics, _ error) {
	if err := s.Record(ctx, d); err != nil {
		s.log.Warn("record export history", zap.String("run", d.RunID), zap.Error(err))
	}
}

const columns = `id, started_at, mode, source, destination, final_state, duration, error`

// Recent lists the latest runs, newest first, without their diagnostics.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := scan(rows, &r); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its diagnostics.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+`, diagnostics FROM runs WHERE id = ?`, id)
	var r Run
	var payload []byte
	if err := scan(row, &r, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	r.Diagnostics = payload
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner, r *Run, extra ...any) error {
	var started string
	dest := append([]any{&r.ID, &started, &r.Mode, &r.Source, &r.Destination, &r.FinalState, &r.Duration, &r.Error}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return fmt.Errorf("decode started_at %q: %w", started, err)
	}
	r.StartedAt = t
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database path.
func (s *Store) Path() string { return s.path }
