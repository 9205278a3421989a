package stats

// Accumulator is a per-column running-state object. Exactly one exists per
// column for the duration of a run, owned by the aggregation driver, and it
// is updated by at most one goroutine at a time.
//
// Observe consumes one raw field value; Snapshot produces an immutable copy
// of the current state and never blocks further updates.
type Accumulator interface {
	Observe(raw string)
	Snapshot() Snapshot
	Schema() ColumnSchema
}

// Snapshot is an immutable point-in-time readout of an accumulator. Exactly
// one of Numeric/Categorical is non-nil, matching Kind.
type Snapshot struct {
	Name     string
	Kind     ColumnKind
	Position int

	// Rows is the number of values routed to the column, nulls included.
	Rows  int64
	Nulls int64

	Numeric     *NumericSnapshot
	Categorical *CategoricalSnapshot
}

// NullRatio returns the fraction of routed values that were null, in [0, 1].
func (s Snapshot) NullRatio() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Nulls) / float64(s.Rows)
}

// AccumulatorConfig carries the per-column tuning shared by all columns of a
// run. Zero values fall back to the package defaults.
type AccumulatorConfig struct {
	// CardinalityCeiling caps the number of distinct keys tracked exactly by
	// a categorical column before new values fold into the "other" bucket.
	CardinalityCeiling int
	// TopK is how many most-frequent values a categorical snapshot exposes.
	TopK int
}

const (
	// DefaultCardinalityCeiling keeps a worst-case categorical column at a
	// few thousand map entries, which bounds memory even for near-unique
	// identifier columns.
	DefaultCardinalityCeiling = 4096
	// DefaultTopK mirrors the "top 5 values" summaries of classic describe
	// output.
	DefaultTopK = 5
)

func (c AccumulatorConfig) withDefaults() AccumulatorConfig {
	if c.CardinalityCeiling <= 0 {
		c.CardinalityCeiling = DefaultCardinalityCeiling
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	return c
}

// New allocates the accumulator matching the column's frozen kind.
func New(schema ColumnSchema, cfg AccumulatorConfig) Accumulator {
	cfg = cfg.withDefaults()
	switch schema.Kind {
	case KindNumeric:
		return newNumeric(schema)
	default:
		return newCategorical(schema, cfg)
	}
}
