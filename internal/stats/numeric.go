package stats

import "math"

// NumericSnapshot is the finished readout of a numeric column.
//
// Mean and StdDev are NaN when Count is zero; Min/Max are NaN as well so a
// renderer can distinguish "no data" from a real zero. StdDev is the sample
// standard deviation (n-1 denominator), 0 for a single observation.
type NumericSnapshot struct {
	Count         int64
	ParseFailures int64
	Sum           float64
	Min           float64
	Max           float64
	Mean          float64
	Variance      float64
	StdDev        float64
}

// numericAcc maintains running moments with Welford's online algorithm.
// The naive sum-of-squares form loses precision catastrophically over tens
// of millions of values; Welford keeps the variance update numerically
// stable at O(1) per value.
type numericAcc struct {
	schema ColumnSchema

	rows  int64
	nulls int64
	// parseFailures counts non-empty values that failed the numeric parse.
	// They are a subset of nulls; the report surfaces them separately so a
	// mis-probed column is visible rather than silently empty.
	parseFailures int64

	count int64
	sum   float64
	min   float64
	max   float64
	mean  float64
	m2    float64
}

func newNumeric(schema ColumnSchema) *numericAcc {
	return &numericAcc{
		schema: schema,
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

func (a *numericAcc) Schema() ColumnSchema { return a.schema }

// Observe folds one raw value into the running state. Empty and unparseable
// values increment the null counter and nothing else; the column is never
// reclassified on their account.
func (a *numericAcc) Observe(raw string) {
	a.rows++
	x, ok := ParseNumeric(raw)
	if !ok {
		a.nulls++
		if raw != "" {
			a.parseFailures++
		}
		return
	}

	a.count++
	a.sum += x
	if x < a.min {
		a.min = x
	}
	if x > a.max {
		a.max = x
	}

	// Welford update.
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

func (a *numericAcc) Snapshot() Snapshot {
	num := NumericSnapshot{
		Count:         a.count,
		ParseFailures: a.parseFailures,
		Sum:           a.sum,
		Min:           a.min,
		Max:           a.max,
		Mean:          a.mean,
		Variance:      0,
		StdDev:        0,
	}
	switch {
	case a.count == 0:
		num.Mean = math.NaN()
		num.Min = math.NaN()
		num.Max = math.NaN()
		num.Variance = math.NaN()
		num.StdDev = math.NaN()
	case a.count > 1:
		num.Variance = a.m2 / float64(a.count-1)
		num.StdDev = math.Sqrt(num.Variance)
	}

	return Snapshot{
		Name:     a.schema.Name,
		Kind:     KindNumeric,
		Position: a.schema.Position,
		Rows:     a.rows,
		Nulls:    a.nulls,
		Numeric:  &num,
	}
}
