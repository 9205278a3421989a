package stats

import "sort"

// ValueCount is one entry of a categorical top-K summary.
type ValueCount struct {
	Value string
	Count int64
}

// CategoricalSnapshot is the finished readout of a categorical column.
//
// Distinct is exact while the column stayed under its cardinality ceiling;
// once the ceiling was hit, DistinctIsEstimate is set and Distinct comes
// from the hash-based estimator instead of the (now partial) table.
// OtherCount is the total number of observations folded into the reserved
// overflow bucket.
type CategoricalSnapshot struct {
	Distinct           int64
	DistinctIsEstimate bool
	OtherCount         int64
	TopK               []ValueCount
}

// valueState is one tracked key of the frequency table. seq records
// first-seen order so top-K ties break deterministically.
type valueState struct {
	count int64
	seq   int
}

// categoricalAcc maintains a bounded value-frequency table. Up to ceiling
// distinct keys are counted exactly; any previously-unseen value after that
// is attributed to a reserved "other" bucket, which is what keeps a
// near-unique identifier column from growing the table without bound. The
// distinct estimator keeps an approximate unique count alive across the
// overflow boundary.
type categoricalAcc struct {
	schema  ColumnSchema
	ceiling int
	topK    int

	rows  int64
	nulls int64

	freq       map[string]*valueState
	nextSeq    int
	other      int64
	overflowed bool

	distinct *distinctEstimator
}

func newCategorical(schema ColumnSchema, cfg AccumulatorConfig) *categoricalAcc {
	return &categoricalAcc{
		schema:   schema,
		ceiling:  cfg.CardinalityCeiling,
		topK:     cfg.TopK,
		freq:     make(map[string]*valueState),
		distinct: newDistinctEstimator(),
	}
}

func (a *categoricalAcc) Schema() ColumnSchema { return a.schema }

// Observe counts one raw value. Empty values are nulls but still count
// toward the row total; non-empty values either bump their exact counter,
// claim a new table slot while capacity remains, or fall into "other".
func (a *categoricalAcc) Observe(raw string) {
	a.rows++
	if raw == "" {
		a.nulls++
		return
	}

	a.distinct.Add(raw)

	if vs, ok := a.freq[raw]; ok {
		vs.count++
		return
	}
	if len(a.freq) < a.ceiling {
		a.freq[raw] = &valueState{count: 1, seq: a.nextSeq}
		a.nextSeq++
		return
	}
	a.overflowed = true
	a.other++
}

func (a *categoricalAcc) Snapshot() Snapshot {
	cat := CategoricalSnapshot{
		Distinct:           int64(len(a.freq)),
		DistinctIsEstimate: a.overflowed,
		OtherCount:         a.other,
		TopK:               a.topValues(),
	}
	if a.overflowed {
		cat.Distinct = a.distinct.Estimate()
	}

	return Snapshot{
		Name:        a.schema.Name,
		Kind:        KindCategorical,
		Position:    a.schema.Position,
		Rows:        a.rows,
		Nulls:       a.nulls,
		Categorical: &cat,
	}
}

// topValues returns the K most frequent tracked values by descending count,
// first-seen order on ties. Sorting the full table on snapshot is fine: it
// happens once per run and the table size is capped by the ceiling.
func (a *categoricalAcc) topValues() []ValueCount {
	type kv struct {
		value string
		state *valueState
	}
	all := make([]kv, 0, len(a.freq))
	for v, st := range a.freq {
		all = append(all, kv{value: v, state: st})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].state.count != all[j].state.count {
			return all[i].state.count > all[j].state.count
		}
		return all[i].state.seq < all[j].state.seq
	})

	k := a.topK
	if k > len(all) {
		k = len(all)
	}
	out := make([]ValueCount, k)
	for i := 0; i < k; i++ {
		out[i] = ValueCount{Value: all[i].value, Count: all[i].state.count}
	}
	return out
}
