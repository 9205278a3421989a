// Package stats implements the streaming aggregation core of the profiler:
// per-column accumulators that consume one raw string value at a time and
// maintain running statistics in O(1) memory per value, plus the one-time
// schema probe that fixes each column's value kind for the rest of a run.
//
// Nothing in this package ever sees more than a single value (or, for the
// probe, a single bounded sample) at a time; the memory held by a column is
// independent of how many values it has observed, except for the categorical
// frequency table, which is capped by an explicit ceiling.
package stats

import (
	"math"
	"strconv"
	"strings"
)

// ColumnKind is the fixed, two-variant value kind assigned to a column by the
// schema probe. It is decided exactly once per run and never revisited;
// values that later contradict the kind are absorbed as nulls rather than
// triggering a reclassification, which would break the single-pass model.
type ColumnKind int

const (
	// KindCategorical columns track a bounded value-frequency table.
	KindCategorical ColumnKind = iota
	// KindNumeric columns track running moments (count/sum/min/max/variance).
	KindNumeric
)

// String returns the lowercase kind name used in reports and history rows.
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ColumnSchema describes one column of the input file. Position is the
// zero-based field index and is stable for the whole run.
type ColumnSchema struct {
	Name     string
	Kind     ColumnKind
	Position int
}

// ProbeKinds classifies every column from the sampled rows of the first
// batch. A column is numeric when every non-empty sampled value parses as a
// finite real number (decimal or scientific notation); anything else, and
// any column whose sample holds no non-empty value at all, is categorical.
// The conservative default avoids coercing an all-null column to numeric on
// zero evidence.
//
// maxSample bounds how many rows are inspected per column; <=0 means all
// sampled rows. The returned slice is aligned with headers by position.
func ProbeKinds(headers []string, sample [][]string, maxSample int) []ColumnSchema {
	n := len(headers)
	schemas := make([]ColumnSchema, n)

	rows := len(sample)
	if maxSample > 0 && rows > maxSample {
		rows = maxSample
	}

	for c := 0; c < n; c++ {
		kind := KindCategorical
		seen := 0
		numeric := true
		for r := 0; r < rows; r++ {
			if c >= len(sample[r]) {
				continue
			}
			v := strings.TrimSpace(sample[r][c])
			if v == "" {
				continue
			}
			seen++
			if _, ok := ParseNumeric(v); !ok {
				numeric = false
				break
			}
		}
		if seen > 0 && numeric {
			kind = KindNumeric
		}
		schemas[c] = ColumnSchema{
			Name:     headers[c],
			Kind:     kind,
			Position: c,
		}
	}
	return schemas
}

// ParseNumeric parses v as a finite float64. Empty strings, non-numeric
// tokens, and the textual NaN/Inf forms all report ok=false; the profiler
// counts those as nulls rather than observations.
func ParseNumeric(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}
