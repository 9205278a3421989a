package stats

import (
	"math"
	"testing"
)

/*
Test_NumericAcc_NullAccounting verifies the null bookkeeping contract:
empty strings and unparseable tokens are nulls (the token additionally
counts as a parse failure), while valid values feed the running moments.
*/
func Test_NumericAcc_NullAccounting(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "price", Kind: KindNumeric, Position: 0})
	for _, v := range []string{"1", "", "3", "NaN", "5"} {
		acc.Observe(v)
	}

	snap := acc.Snapshot()
	if snap.Rows != 5 {
		t.Fatalf("rows = %d, want 5", snap.Rows)
	}
	if snap.Nulls != 2 {
		t.Fatalf("nulls = %d, want 2", snap.Nulls)
	}
	num := snap.Numeric
	if num == nil {
		t.Fatalf("numeric snapshot missing")
	}
	if num.Count != 3 {
		t.Fatalf("count = %d, want 3", num.Count)
	}
	if num.Sum != 9 {
		t.Fatalf("sum = %v, want 9", num.Sum)
	}
	if num.Mean != 3.0 {
		t.Fatalf("mean = %v, want 3.0", num.Mean)
	}
	if num.ParseFailures != 1 {
		t.Fatalf("parse failures = %d, want 1 (the NaN token)", num.ParseFailures)
	}
	if num.Min != 1 || num.Max != 5 {
		t.Fatalf("min/max = %v/%v, want 1/5", num.Min, num.Max)
	}
}

/*
Test_NumericAcc_EmptyColumn verifies that a column with zero parseable
values reports NaN statistics rather than zeros, so renderers can tell
"no data" apart from real zeros.
*/
func Test_NumericAcc_EmptyColumn(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "empty", Kind: KindNumeric})
	acc.Observe("")
	acc.Observe("not-a-number")

	num := acc.Snapshot().Numeric
	for field, v := range map[string]float64{
		"mean": num.Mean, "min": num.Min, "max": num.Max,
		"variance": num.Variance, "stddev": num.StdDev,
	} {
		if !math.IsNaN(v) {
			t.Fatalf("%s = %v, want NaN for empty column", field, v)
		}
	}
}

/*
Test_NumericAcc_WelfordStability feeds values with a large common offset,
the classic case where the sum-of-squares form cancels catastrophically.
The Welford variance must stay close to the true value.
*/
func Test_NumericAcc_WelfordStability(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "offset", Kind: KindNumeric})

	// 1e9 + {0, 1, 2}: true sample variance is exactly 1.
	acc.Observe("1000000000")
	acc.Observe("1000000001")
	acc.Observe("1000000002")

	num := acc.Snapshot().Numeric
	if math.Abs(num.Variance-1.0) > 1e-6 {
		t.Fatalf("variance = %v, want 1.0 (Welford should not cancel)", num.Variance)
	}
	if math.Abs(num.StdDev-1.0) > 1e-6 {
		t.Fatalf("stddev = %v, want 1.0", num.StdDev)
	}
}

/*
Test_NumericAcc_SingleValue checks the n=1 edge: defined mean, zero
variance.
*/
func Test_NumericAcc_SingleValue(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "one", Kind: KindNumeric})
	acc.Observe("42.5")

	num := acc.Snapshot().Numeric
	if num.Mean != 42.5 {
		t.Fatalf("mean = %v, want 42.5", num.Mean)
	}
	if num.Variance != 0 || num.StdDev != 0 {
		t.Fatalf("variance/stddev = %v/%v, want 0/0 for single value", num.Variance, num.StdDev)
	}
}

/*
Test_NumericAcc_ScientificNotation accepts the standard float forms the
schema probe admits.
*/
func Test_NumericAcc_ScientificNotation(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "sci", Kind: KindNumeric})
	acc.Observe("1.5e3")
	acc.Observe("-2.5E-1")

	num := acc.Snapshot().Numeric
	if num.Count != 2 {
		t.Fatalf("count = %d, want 2", num.Count)
	}
	if num.Max != 1500 {
		t.Fatalf("max = %v, want 1500", num.Max)
	}
	if num.Min != -0.25 {
		t.Fatalf("min = %v, want -0.25", num.Min)
	}
}

/*
Test_NumericAcc_SnapshotDoesNotBlockUpdates takes a snapshot mid-stream and
verifies further observations still land.
*/
func Test_NumericAcc_SnapshotDoesNotBlockUpdates(t *testing.T) {
	acc := newNumeric(ColumnSchema{Name: "mid", Kind: KindNumeric})
	acc.Observe("1")
	mid := acc.Snapshot()
	acc.Observe("3")
	final := acc.Snapshot()

	if mid.Numeric.Count != 1 {
		t.Fatalf("mid count = %d, want 1", mid.Numeric.Count)
	}
	if final.Numeric.Count != 2 {
		t.Fatalf("final count = %d, want 2", final.Numeric.Count)
	}
	if final.Numeric.Mean != 2.0 {
		t.Fatalf("final mean = %v, want 2.0", final.Numeric.Mean)
	}
}
