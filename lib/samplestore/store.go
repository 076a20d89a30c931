// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package samplestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
)

// schema is applied on open. CREATE IF NOT EXISTS keeps reopening an
// existing store cheap.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             INTEGER PRIMARY KEY,
    started_at_ns  INTEGER NOT NULL,
    finished_at_ns INTEGER,
    hostname       TEXT NOT NULL DEFAULT '',
    interval_ns    INTEGER NOT NULL,
    plan           TEXT NOT NULL DEFAULT '',
    note           TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS series (
    id     INTEGER PRIMARY KEY,
    run_id INTEGER NOT NULL REFERENCES runs(id),
    cpu    INTEGER NOT NULL,
    knob   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS series_by_run ON series(run_id);

CREATE TABLE IF NOT EXISTS samples (
    series_id INTEGER NOT NULL REFERENCES series(id),
    at_ns     INTEGER NOT NULL,
    value     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS samples_by_series ON samples(series_id, at_ns);
`

// Options configures a Store. The zero value works.
type Options struct {
	// PoolSize is the number of SQLite connections. Defaults to 4:
	// one writer (SQLite serializes writes anyway) plus headroom for
	// concurrent query commands.
	PoolSize int

	// Logger receives operational messages. Defaults to a no-op
	// logger.
	Logger *slog.Logger
}

// Store is a SQLite-backed archive of recording runs. Safe for
// concurrent use; individual connections are pooled internally.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// RunMeta is the metadata recorded when a run begins.
type RunMeta struct {
	StartedAt time.Time
	Hostname  string
	Interval  time.Duration
	Plan      string
	Note      string
}

// RunInfo describes one stored run.
type RunInfo struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time // zero when the run never finished
	Hostname   string
	Interval   time.Duration
	Plan       string
	Note       string
}

// Finished reports whether the run was closed with FinishRun.
func (r RunInfo) Finished() bool { return !r.FinishedAt.IsZero() }

// SeriesInfo describes one stored timeline.
type SeriesInfo struct {
	ID      int64
	RunID   int64
	CPU     int
	Knob    string
	Samples int64
}

// Open opens (creating if necessary) the sample store at path. The
// parent directory must exist.
func Open(path string, options Options) (*Store, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := options.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("samplestore: opening %s: %w", path, err)
	}

	store := &Store{pool: pool, logger: logger, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Debug("sample store opened", "path", path, "pool_size", poolSize)
	return store, nil
}

// prepareConnection applies the standard pragmas, once per pooled
// connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("samplestore: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) applySchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("samplestore: applying schema: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("samplestore: applying schema: %w", err)
	}
	return nil
}

// Close closes the connection pool. Blocks until borrowed connections
// are returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("samplestore: closing %s: %w", s.path, err)
	}
	return nil
}

// BeginRun inserts a new, unfinished run and returns its id.
func (s *Store) BeginRun(ctx context.Context, meta RunMeta) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("samplestore: begin run: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO runs (started_at_ns, hostname, interval_ns, plan, note) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{meta.StartedAt.UnixNano(), meta.Hostname, meta.Interval.Nanoseconds(), meta.Plan, meta.Note},
		})
	if err != nil {
		return 0, fmt.Errorf("samplestore: begin run: %w", err)
	}
	runID := conn.LastInsertRowID()
	s.logger.Info("run started", "run", runID, "plan", meta.Plan)
	return runID, nil
}

// FinishRun stamps a run's end time.
func (s *Store) FinishRun(ctx context.Context, runID int64, finishedAt time.Time) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("samplestore: finish run: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE runs SET finished_at_ns = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{finishedAt.UnixNano(), runID}})
	if err != nil {
		return fmt.Errorf("samplestore: finish run %d: %w", runID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("samplestore: finish run %d: no such run", runID)
	}
	return nil
}

// AppendSeries stores one harvested timeline under a run. The series
// row and all its samples are written in a single IMMEDIATE
// transaction.
func (s *Store) AppendSeries(ctx context.Context, runID int64, cpu int, knob string, samples []recorder.Sample) (err error) {
	conn, takeErr := s.pool.Take(ctx)
	if takeErr != nil {
		return fmt.Errorf("samplestore: append series: %w", takeErr)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("samplestore: append series: begin: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO series (run_id, cpu, knob) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{runID, cpu, knob}})
	if err != nil {
		return fmt.Errorf("samplestore: inserting series %s cpu %d: %w", knob, cpu, err)
	}
	seriesID := conn.LastInsertRowID()

	for _, sample := range samples {
		err = sqlitex.Execute(conn,
			`INSERT INTO samples (series_id, at_ns, value) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{seriesID, sample.Time.UnixNano(), int64(sample.Value)}})
		if err != nil {
			return fmt.Errorf("samplestore: inserting sample for series %d: %w", seriesID, err)
		}
	}

	s.logger.Debug("series stored", "run", runID, "cpu", cpu, "knob", knob, "samples", len(samples))
	return nil
}

// Runs lists all stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("samplestore: listing runs: %w", err)
	}
	defer s.pool.Put(conn)

	var runs []RunInfo
	err = sqlitex.Execute(conn,
		`SELECT id, started_at_ns, finished_at_ns, hostname, interval_ns, plan, note
		 FROM runs ORDER BY started_at_ns DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				run := RunInfo{
					ID:        stmt.ColumnInt64(0),
					StartedAt: time.Unix(0, stmt.ColumnInt64(1)),
					Hostname:  stmt.ColumnText(3),
					Interval:  time.Duration(stmt.ColumnInt64(4)),
					Plan:      stmt.ColumnText(5),
					Note:      stmt.ColumnText(6),
				}
				if stmt.ColumnType(2) != sqlite.TypeNull {
					run.FinishedAt = time.Unix(0, stmt.ColumnInt64(2))
				}
				runs = append(runs, run)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("samplestore: listing runs: %w", err)
	}
	return runs, nil
}

// Run fetches one run by id.
func (s *Store) Run(ctx context.Context, runID int64) (RunInfo, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return RunInfo{}, err
	}
	for _, run := range runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return RunInfo{}, fmt.Errorf("samplestore: no run with id %d", runID)
}

// RunSeries lists a run's timelines, ordered by CPU then knob.
func (s *Store) RunSeries(ctx context.Context, runID int64) ([]SeriesInfo, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("samplestore: listing series: %w", err)
	}
	defer s.pool.Put(conn)

	var series []SeriesInfo
	err = sqlitex.Execute(conn,
		`SELECT series.id, series.run_id, series.cpu, series.knob, COUNT(samples.series_id)
		 FROM series LEFT JOIN samples ON samples.series_id = series.id
		 WHERE series.run_id = ?
		 GROUP BY series.id
		 ORDER BY series.cpu, series.knob`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				series = append(series, SeriesInfo{
					ID:      stmt.ColumnInt64(0),
					RunID:   stmt.ColumnInt64(1),
					CPU:     stmt.ColumnInt(2),
					Knob:    stmt.ColumnText(3),
					Samples: stmt.ColumnInt64(4),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("samplestore: listing series for run %d: %w", runID, err)
	}
	return series, nil
}

// Samples streams one timeline's samples, in time order, through fn.
// A non-nil error from fn aborts the scan and is returned.
func (s *Store) Samples(ctx context.Context, seriesID int64, fn func(recorder.Sample) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("samplestore: reading samples: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`SELECT at_ns, value FROM samples WHERE series_id = ? ORDER BY at_ns`,
		&sqlitex.ExecOptions{
			Args: []any{seriesID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				return fn(recorder.Sample{
					Time:  time.Unix(0, stmt.ColumnInt64(0)),
					Value: uint64(stmt.ColumnInt64(1)),
				})
			},
		})
	if err != nil {
		return fmt.Errorf("samplestore: reading samples for series %d: %w", seriesID, err)
	}
	return nil
}

// DeleteRun removes a run with all its series and samples.
func (s *Store) DeleteRun(ctx context.Context, runID int64) (err error) {
	conn, takeErr := s.pool.Take(ctx)
	if takeErr != nil {
		return fmt.Errorf("samplestore: delete run: %w", takeErr)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("samplestore: delete run: begin: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`DELETE FROM samples WHERE series_id IN (SELECT id FROM series WHERE run_id = ?)`,
		&sqlitex.ExecOptions{Args: []any{runID}})
	if err != nil {
		return fmt.Errorf("samplestore: deleting samples of run %d: %w", runID, err)
	}
	err = sqlitex.Execute(conn,
		`DELETE FROM series WHERE run_id = ?`,
		&sqlitex.ExecOptions{Args: []any{runID}})
	if err != nil {
		return fmt.Errorf("samplestore: deleting series of run %d: %w", runID, err)
	}
	err = sqlitex.Execute(conn,
		`DELETE FROM runs WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{runID}})
	if err != nil {
		return fmt.Errorf("samplestore: deleting run %d: %w", runID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("samplestore: no run with id %d", runID)
	}

	s.logger.Info("run deleted", "run", runID)
	return nil
}
