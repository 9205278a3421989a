// Package sqlite implements a SQLite-backed history.Repository using
// database/sql. Each run is written inside one transaction: the runs row
// first, then one column_profiles row per column. SQLite has no bulk-load
// API, but a single transaction keeps the write cheap at these volumes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3

	"flatprof/internal/history"
	"flatprof/internal/stats"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	job                TEXT NOT NULL,
	path               TEXT NOT NULL,
	started_at         TEXT NOT NULL,
	elapsed_ms         INTEGER NOT NULL,
	state              TEXT NOT NULL,
	rows_seen          INTEGER NOT NULL,
	rows_malformed     INTEGER NOT NULL,
	rows_decode_errors INTEGER NOT NULL,
	batches            INTEGER NOT NULL,
	peak_rss_bytes     INTEGER NOT NULL,
	err_kind           TEXT NOT NULL DEFAULT '',
	failed_row         INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS column_profiles (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             INTEGER NOT NULL REFERENCES runs(id),
	position           INTEGER NOT NULL,
	name               TEXT NOT NULL,
	kind               TEXT NOT NULL,
	rows               INTEGER NOT NULL,
	nulls              INTEGER NOT NULL,
	null_ratio         REAL NOT NULL,
	num_count          INTEGER,
	parse_failures     INTEGER,
	num_sum            REAL,
	num_min            REAL,
	num_max            REAL,
	num_mean           REAL,
	num_variance       REAL,
	num_stddev         REAL,
	distinct_count     INTEGER,
	distinct_estimated INTEGER,
	other_count        INTEGER,
	top_values         TEXT
);
CREATE INDEX IF NOT EXISTS idx_column_profiles_run ON column_profiles(run_id);
`

// Repository is a SQLite-backed implementation of history.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a SQLite database at the given DSN and creates the
// schema if missing.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:profiles.db?cache=shared"
//	"profiles.db"
//	":memory:"
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() error { return r.db.Close() }

// SaveRun writes the run row and its column profiles in one transaction and
// returns the new run ID.
func (r *Repository) SaveRun(ctx context.Context, rec history.RunRecord) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (job, path, started_at, elapsed_ms, state,
			rows_seen, rows_malformed, rows_decode_errors, batches,
			peak_rss_bytes, err_kind, failed_row)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Job, rec.Path, rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Elapsed.Milliseconds(), rec.State,
		rec.RowsSeen, rec.RowsMalformed, rec.RowsDecodeErrors, rec.Batches,
		rec.PeakRSSBytes, rec.ErrKind, rec.FailedRow,
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO column_profiles (run_id, position, name, kind, rows, nulls,
			null_ratio, num_count, parse_failures, num_sum, num_min, num_max,
			num_mean, num_variance, num_stddev, distinct_count,
			distinct_estimated, other_count, top_values)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare column insert: %w", err)
	}
	defer stmt.Close()

	var columns []stats.Snapshot
	if rec.Summary != nil {
		columns = rec.Summary.Columns
	}
	for _, col := range columns {
		args, err := columnArgs(runID, col)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert column %q: %w", col.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return runID, nil
}

// columnArgs flattens one column snapshot into the insert argument list.
// Numeric-only fields are NULL for categorical columns and vice versa.
func columnArgs(runID int64, col stats.Snapshot) ([]any, error) {
	args := []any{
		runID, col.Position, col.Name, kindLabel(col.Kind),
		col.Rows, col.Nulls, col.NullRatio(),
	}

	if n := col.Numeric; n != nil {
		args = append(args,
			n.Count, n.ParseFailures, n.Sum,
			nanNull(n.Min), nanNull(n.Max), nanNull(n.Mean),
			nanNull(n.Variance), nanNull(n.StdDev),
		)
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil, nil, nil)
	}

	if c := col.Categorical; c != nil {
		top, err := json.Marshal(c.TopK)
		if err != nil {
			return nil, fmt.Errorf("sqlite: marshal top values for %q: %w", col.Name, err)
		}
		args = append(args, c.Distinct, boolInt(c.DistinctIsEstimate), c.OtherCount, string(top))
	} else {
		args = append(args, nil, nil, nil, nil)
	}

	return args, nil
}

func kindLabel(k stats.ColumnKind) string {
	if k == stats.KindNumeric {
		return "numeric"
	}
	return "categorical"
}

// nanNull maps NaN (the no-data marker of numeric snapshots) to SQL NULL.
func nanNull(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
