package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pubtools/pkg/core"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time // Zero while the run is in flight or after a crash
	State      string
	Error      string
	Files      int
}

// Transform is one committed file transform.
type Transform struct {
	RunID    string
	Stage    string
	Path     string
	Output   string
	Class    string
	BytesIn  int64
	BytesOut int64
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, id, root string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, root, started_at, state) VALUES (?, ?, ?, ?)",
		id, root, started.UTC().Format(timeLayout), "running")
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final state of a run and its error, if any.
func (s *Store) FinishRun(ctx context.Context, id string, state core.State, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, state = ?, error = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), state.String(), msg, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: no run %s", id)
	}
	return nil
}

// AddTransform appends a committed transform to a run.
func (s *Store) AddTransform(ctx context.Context, runID string, ev core.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transforms (run_id, stage, path, output, class, bytes_in, bytes_out, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Stage.String(), ev.Path, ev.Output, ev.Class.String(), ev.BytesIn, ev.BytesOut,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert transform %s: %w", ev.Path, err)
	}
	return nil
}

// Runs lists the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.root, r.started_at, r.finished_at, r.state, r.error,
		       (SELECT COUNT(1) FROM transforms t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Root, &started, &finished, &r.State, &errMsg, &r.Files); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished.Valid {
			r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
		}
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Transforms lists the transforms of a run in commit order.
func (s *Store) Transforms(ctx context.Context, runID string) ([]Transform, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, stage, path, output, class, bytes_in, bytes_out
		FROM transforms WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query transforms: %w", err)
	}
	defer rows.Close()

	var out []Transform
	for rows.Next() {
		var t Transform
		if err := rows.Scan(&t.RunID, &t.Stage, &t.Path, &t.Output, &t.Class, &t.BytesIn, &t.BytesOut); err != nil {
			return nil, fmt.Errorf("scan transform: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transforms: %w", err)
	}
	return out, nil
}

// Recorder is a core.Observer writing committed transforms of one run to
// the store. Observers cannot fail the pipeline, so the first write error
// is kept and reported by Err.
type Recorder struct {
	store *Store
	runID string
	ctx   context.Context

	mu  sync.Mutex
	err error
}

// Recorder returns an observer bound to runID.
func (s *Store) Recorder(ctx context.Context, runID string) *Recorder {
	return &Recorder{store: s, runID: runID, ctx: ctx}
}

func (r *Recorder) StageStarted(core.Stage)       {}
func (r *Recorder) StageFinished(core.Stage, int) {}

func (r *Recorder) FileCommitted(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	r.err = r.store.AddTransform(r.ctx, r.runID, ev)
}

// Err returns the first write failure.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		return nil
	}
	return fmt.Errorf("report %s: %w", r.store.path, r.err)
}
