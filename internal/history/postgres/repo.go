// Package postgres implements a Postgres-backed history.Repository using
// pgx v5. The runs row is inserted first to obtain the run ID, then the
// column profiles go in through a single COPY.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flatprof/internal/history"
	"flatprof/internal/stats"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                 BIGSERIAL PRIMARY KEY,
	job                TEXT NOT NULL,
	path               TEXT NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	elapsed_ms         BIGINT NOT NULL,
	state              TEXT NOT NULL,
	rows_seen          BIGINT NOT NULL,
	rows_malformed     BIGINT NOT NULL,
	rows_decode_errors BIGINT NOT NULL,
	batches            BIGINT NOT NULL,
	peak_rss_bytes     BIGINT NOT NULL,
	err_kind           TEXT NOT NULL DEFAULT '',
	failed_row         BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS column_profiles (
	id                 BIGSERIAL PRIMARY KEY,
	run_id             BIGINT NOT NULL REFERENCES runs(id),
	position           INT NOT NULL,
	name               TEXT NOT NULL,
	kind               TEXT NOT NULL,
	rows               BIGINT NOT NULL,
	nulls              BIGINT NOT NULL,
	null_ratio         DOUBLE PRECISION NOT NULL,
	num_count          BIGINT,
	parse_failures     BIGINT,
	num_sum            DOUBLE PRECISION,
	num_min            DOUBLE PRECISION,
	num_max            DOUBLE PRECISION,
	num_mean           DOUBLE PRECISION,
	num_variance       DOUBLE PRECISION,
	num_stddev         DOUBLE PRECISION,
	distinct_count     BIGINT,
	distinct_estimated BOOLEAN,
	other_count        BIGINT,
	top_values         JSONB
);
CREATE INDEX IF NOT EXISTS idx_column_profiles_run ON column_profiles(run_id);
`

const insertRunSQL = `
INSERT INTO runs (job, path, started_at, elapsed_ms, state,
	rows_seen, rows_malformed, rows_decode_errors, batches,
	peak_rss_bytes, err_kind, failed_row)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`

// columnProfileColumns is the COPY column order for column_profiles.
var columnProfileColumns = []string{
	"run_id", "position", "name", "kind", "rows", "nulls", "null_ratio",
	"num_count", "parse_failures", "num_sum", "num_min", "num_max",
	"num_mean", "num_variance", "num_stddev",
	"distinct_count", "distinct_estimated", "other_count", "top_values",
}

// Repository is a Postgres-backed implementation of history.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects, creates the schema if missing, and returns the
// repository.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// SaveRun inserts the run row, COPYs the column profiles, and returns the
// run ID. Everything happens in one transaction.
func (r *Repository) SaveRun(ctx context.Context, rec history.RunRecord) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var runID int64
	err = tx.QueryRow(ctx, insertRunSQL,
		rec.Job, rec.Path, rec.StartedAt.UTC(), rec.Elapsed.Milliseconds(),
		rec.State, rec.RowsSeen, rec.RowsMalformed, rec.RowsDecodeErrors,
		rec.Batches, rec.PeakRSSBytes, rec.ErrKind, rec.FailedRow,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert run: %w", err)
	}

	rows, err := columnRows(runID, rec)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"column_profiles"},
			columnProfileColumns,
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return 0, fmt.Errorf("postgres: copy column profiles: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return runID, nil
}

// columnRows flattens the column snapshots into COPY rows matching
// columnProfileColumns. Numeric-only fields are NULL for categorical
// columns and vice versa.
func columnRows(runID int64, rec history.RunRecord) ([][]any, error) {
	if rec.Summary == nil {
		return nil, nil
	}
	rows := make([][]any, 0, len(rec.Summary.Columns))
	for _, col := range rec.Summary.Columns {
		row := []any{
			runID, col.Position, col.Name, kindLabel(col.Kind),
			col.Rows, col.Nulls, col.NullRatio(),
		}

		if n := col.Numeric; n != nil {
			row = append(row,
				n.Count, n.ParseFailures, n.Sum,
				nanNull(n.Min), nanNull(n.Max), nanNull(n.Mean),
				nanNull(n.Variance), nanNull(n.StdDev),
			)
		} else {
			row = append(row, nil, nil, nil, nil, nil, nil, nil, nil)
		}

		if c := col.Categorical; c != nil {
			top, err := json.Marshal(c.TopK)
			if err != nil {
				return nil, fmt.Errorf("postgres: marshal top values for %q: %w", col.Name, err)
			}
			row = append(row, c.Distinct, c.DistinctIsEstimate, c.OtherCount, string(top))
		} else {
			row = append(row, nil, nil, nil, nil)
		}

		rows = append(rows, row)
	}
	return rows, nil
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
