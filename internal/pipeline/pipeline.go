// Package pipeline drives a profiling run end to end: open the source,
// probe the schema from the first batch, stream the remaining batches
// through the per-column accumulators, and assemble the run summary.
//
// A Driver is single-use. It moves through a fixed sequence of states and
// never goes backward; a failed run keeps the state and row position of the
// failure for the summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"

	"flatprof/internal/datasource"
	"flatprof/internal/metrics"
	csvparser "flatprof/internal/parser/csv"
	"flatprof/internal/stats"
	"flatprof/internal/sysinfo"
)

// State is the phase a run is in. Transitions are strictly forward.
type State int

const (
	StateInitializing State = iota
	StateProbing
	StateAggregating
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateProbing:
		return "probing"
	case StateAggregating:
		return "aggregating"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrKind classifies the fatal error of a failed run.
type ErrKind string

const (
	ErrNone              ErrKind = ""
	ErrSourceUnavailable ErrKind = "source_unavailable"
	ErrKindDecode        ErrKind = "decode_error"
	ErrKindRead          ErrKind = "read_error"
	ErrKindCanceled      ErrKind = "canceled"
)

// Config tunes a profiling run. Zero values get the documented defaults.
type Config struct {
	// Job names the run for logs and metrics. Default "flatprof".
	Job string
	// BatchSize caps the rows held in memory at once. Default 10000.
	BatchSize int
	// ProbeRows caps how many rows of the first batch feed the schema probe.
	// 0 means the whole first batch.
	ProbeRows int
	// CardinalityCeiling bounds each categorical frequency table.
	CardinalityCeiling int
	// TopK is the number of most-frequent values kept per categorical column.
	TopK int
	// TrimSpace strips edge whitespace from every cell before aggregation.
	TrimSpace bool
	// Delimiter is the field separator; ',' when unset.
	Delimiter rune
	// Encoding decodes the source; strict UTF-8 when nil.
	Encoding encoding.Encoding
	// DecodePolicy selects what happens to undecodable rows.
	DecodePolicy csvparser.DecodePolicy
	// Workers fans column aggregation out across goroutines when > 1.
	// Columns are sharded, so no accumulator is ever shared.
	Workers int
	// LogEveryBatches is the heartbeat interval; 0 disables the heartbeat.
	LogEveryBatches int
}

func (c *Config) setDefaults() {
	if c.Job == "" {
		c.Job = "flatprof"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10000
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// Summary is the immutable result of a run, successful or not.
type Summary struct {
	Job    string
	State  State
	Header []string

	RowsSeen         int64
	RowsMalformed    int64
	RowsDecodeErrors int64
	Batches          int64

	Columns []stats.Snapshot

	Elapsed      time.Duration
	PeakRSSBytes int64

	// Failure details; zero values on success.
	ErrKind   ErrKind
	FailedRow int64
}

// Driver runs one profiling pass over one source. Not safe for concurrent
// use; create a new Driver per run.
type Driver struct {
	cfg   Config
	src   datasource.Source
	state State

	header []string
	accs   []stats.Accumulator

	rowsSeen  int64
	batches   int64
	failedRow int64
}

// New returns a Driver over src. Run may be called exactly once.
func New(src datasource.Source, cfg Config) *Driver {
	cfg.setDefaults()
	return &Driver{cfg: cfg, src: src, state: StateInitializing}
}

// State reports the current phase.
func (d *Driver) State() State { return d.state }

// Run executes the full profiling pass and returns the summary. On failure
// the summary still carries everything aggregated up to the failure point,
// alongside the error classification.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	reader, err := d.initialize(ctx)
	if err != nil {
		return d.fail(start, ErrSourceUnavailable, err, nil)
	}
	defer reader.Close()

	d.state = StateProbing
	probeStart := time.Now()
	first, err := reader.Next(ctx)
	if err != nil && err != io.EOF {
		metrics.RecordStage(d.cfg.Job, "probe", err, time.Since(probeStart))
		return d.fail(start, classify(err), err, reader)
	}
	d.header = reader.Header()
	if err := d.probe(first); err != nil {
		metrics.RecordStage(d.cfg.Job, "probe", err, time.Since(probeStart))
		return d.fail(start, ErrKindRead, err, reader)
	}
	metrics.RecordStage(d.cfg.Job, "probe", nil, time.Since(probeStart))

	d.state = StateAggregating
	aggStart := time.Now()
	if first != nil {
		d.consume(ctx, first)
		first.Free()
	}
	for {
		b, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.RecordStage(d.cfg.Job, "aggregate", err, time.Since(aggStart))
			return d.fail(start, classify(err), err, reader)
		}
		d.consume(ctx, b)
		b.Free()
	}
	metrics.RecordStage(d.cfg.Job, "aggregate", nil, time.Since(aggStart))

	d.state = StateFinalizing
	skipped := reader.Skipped()
	metrics.RecordRows(d.cfg.Job, "seen", d.rowsSeen)
	metrics.RecordRows(d.cfg.Job, "malformed", skipped.Malformed)
	metrics.RecordRows(d.cfg.Job, "decode_errors", skipped.Decode)
	metrics.RecordBatches(d.cfg.Job, d.batches)

	d.state = StateDone
	s := d.summary(start, skipped)
	return s, nil
}

// Snapshots re-derives the per-column results from the accumulators. After
// the run reaches a terminal state, repeated calls return identical values.
func (d *Driver) Snapshots() []stats.Snapshot {
	out := make([]stats.Snapshot, len(d.accs))
	for i, a := range d.accs {
		out[i] = a.Snapshot()
	}
	return out
}

func (d *Driver) initialize(ctx context.Context) (*csvparser.BatchReader, error) {
	rc, err := d.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	reader, err := csvparser.NewBatchReader(rc, csvparser.Options{
		Delimiter:    d.cfg.Delimiter,
		BatchSize:    d.cfg.BatchSize,
		Encoding:     d.cfg.Encoding,
		TrimSpace:    d.cfg.TrimSpace,
		HasHeader:    true,
		DecodePolicy: d.cfg.DecodePolicy,
	}, nil)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return reader, nil
}

// probe classifies every column from the first batch and builds the
// accumulators. The classification is final; later batches never change it.
func (d *Driver) probe(first *csvparser.Batch) error {
	var rows [][]string
	if first != nil {
		rows = first.Rows
	}
	if len(d.header) == 0 && len(rows) == 0 {
		return errors.New("empty input: no header and no rows")
	}
	schemas := stats.ProbeKinds(d.header, rows, d.cfg.ProbeRows)
	d.accs = make([]stats.Accumulator, len(schemas))
	for i, sc := range schemas {
		d.accs[i] = stats.New(sc, stats.AccumulatorConfig{
			CardinalityCeiling: d.cfg.CardinalityCeiling,
			TopK:               d.cfg.TopK,
		})
	}
	return nil
}

// consume routes one batch through the accumulators, sharding columns
// across workers when configured. Row order within a column is preserved
// either way.
func (d *Driver) consume(ctx context.Context, b *csvparser.Batch) {
	if d.cfg.Workers > 1 && len(d.accs) > 1 {
		d.consumeSharded(ctx, b)
	} else {
		for _, row := range b.Rows {
			for col, acc := range d.accs {
				if col < len(row) {
					acc.Observe(row[col])
				}
			}
		}
	}

	d.rowsSeen += int64(b.Len())
	d.batches++
	if n := d.cfg.LogEveryBatches; n > 0 && d.batches%int64(n) == 0 {
		log.Printf("pipeline: job=%s batches=%d rows=%d", d.cfg.Job, d.batches, d.rowsSeen)
	}
}

func (d *Driver) consumeSharded(ctx context.Context, b *csvparser.Batch) {
	workers := d.cfg.Workers
	if workers > len(d.accs) {
		workers = len(d.accs)
	}
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for col := w; col < len(d.accs); col += workers {
				acc := d.accs[col]
				for _, row := range b.Rows {
					if col < len(row) {
						acc.Observe(row[col])
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait() // shard workers never return errors
}

func (d *Driver) summary(start time.Time, skipped csvparser.SkipCounts) *Summary {
	return &Summary{
		Job:              d.cfg.Job,
		State:            d.state,
		Header:           d.header,
		RowsSeen:         d.rowsSeen,
		RowsMalformed:    skipped.Malformed,
		RowsDecodeErrors: skipped.Decode,
		Batches:          d.batches,
		Columns:          d.Snapshots(),
		Elapsed:          time.Since(start),
		PeakRSSBytes:     sysinfo.PeakRSS(),
	}
}

func (d *Driver) fail(start time.Time, kind ErrKind, err error, reader *csvparser.BatchReader) (*Summary, error) {
	d.state = StateFailed
	var skipped csvparser.SkipCounts
	if reader != nil {
		skipped = reader.Skipped()
		d.failedRow = reader.Row()
	}
	s := d.summary(start, skipped)
	s.State = StateFailed
	s.ErrKind = kind
	s.FailedRow = d.failedRow
	if kind == ErrKindCanceled {
		// A canceled run discards its in-flight per-column state; only the
		// run-level counters survive.
		d.accs = nil
		s.Columns = nil
	}
	return s, fmt.Errorf("%s: %w", kind, err)
}

func classify(err error) ErrKind {
	switch {
	case errors.Is(err, csvparser.ErrDecode):
		return ErrKindDecode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrKindCanceled
	default:
		return ErrKindRead
	}
}
