package stats

import (
	"fmt"
	"testing"
)

func newTestCategorical(ceiling, topK int) *categoricalAcc {
	return newCategorical(
		ColumnSchema{Name: "cat", Kind: KindCategorical},
		AccumulatorConfig{CardinalityCeiling: ceiling, TopK: topK},
	)
}

/*
Test_CategoricalAcc_TopKDeterminism checks descending-count order with
first-seen tie-breaking: for a:3 b:2 c:1, top-2 is [a b], and the b/c style
ties resolve by insertion order every time.
*/
func Test_CategoricalAcc_TopKDeterminism(t *testing.T) {
	acc := newTestCategorical(100, 2)
	for _, v := range []string{"a", "b", "a", "c", "b", "a"} {
		acc.Observe(v)
	}

	cat := acc.Snapshot().Categorical
	want := []ValueCount{{"a", 3}, {"b", 2}}
	if len(cat.TopK) != len(want) {
		t.Fatalf("topK len = %d, want %d", len(cat.TopK), len(want))
	}
	for i := range want {
		if cat.TopK[i] != want[i] {
			t.Fatalf("topK[%d] = %+v, want %+v", i, cat.TopK[i], want[i])
		}
	}
	if cat.Distinct != 3 {
		t.Fatalf("distinct = %d, want 3", cat.Distinct)
	}
	if cat.DistinctIsEstimate {
		t.Fatalf("distinct flagged approximate below the ceiling")
	}
}

/*
Test_CategoricalAcc_TieBreakFirstSeen pins the tie-break explicitly: equal
counts must surface in first-seen order regardless of map iteration order.
*/
func Test_CategoricalAcc_TieBreakFirstSeen(t *testing.T) {
	acc := newTestCategorical(100, 3)
	for _, v := range []string{"zebra", "apple", "mango"} {
		acc.Observe(v)
	}

	cat := acc.Snapshot().Categorical
	wantOrder := []string{"zebra", "apple", "mango"}
	for i, w := range wantOrder {
		if cat.TopK[i].Value != w {
			t.Fatalf("topK[%d] = %q, want %q (first-seen order)", i, cat.TopK[i].Value, w)
		}
	}
}

/*
Test_CategoricalAcc_NullCounting: empty values are nulls, count toward the
row total, and never enter the frequency table.
*/
func Test_CategoricalAcc_NullCounting(t *testing.T) {
	acc := newTestCategorical(100, 5)
	for _, v := range []string{"x", "", "x", ""} {
		acc.Observe(v)
	}

	snap := acc.Snapshot()
	if snap.Rows != 4 {
		t.Fatalf("rows = %d, want 4", snap.Rows)
	}
	if snap.Nulls != 2 {
		t.Fatalf("nulls = %d, want 2", snap.Nulls)
	}
	if got := snap.NullRatio(); got != 0.5 {
		t.Fatalf("null ratio = %v, want 0.5", got)
	}
	cat := snap.Categorical
	if cat.Distinct != 1 {
		t.Fatalf("distinct = %d, want 1 (empty is not a value)", cat.Distinct)
	}
	if cat.TopK[0].Count != 2 {
		t.Fatalf("x count = %d, want 2", cat.TopK[0].Count)
	}
}

/*
Test_CategoricalAcc_CardinalityCeiling drives a column far past its ceiling
and verifies: the exact table never exceeds the ceiling, overflow lands in
the "other" bucket, known values keep counting exactly, and the distinct
count is flagged as an estimate in the right ballpark.
*/
func Test_CategoricalAcc_CardinalityCeiling(t *testing.T) {
	const ceiling = 8
	acc := newTestCategorical(ceiling, 3)

	// First claim the ceiling with stable keys, then flood with unseen ones.
	for i := 0; i < ceiling; i++ {
		acc.Observe(fmt.Sprintf("key-%d", i))
	}
	for i := 0; i < 500; i++ {
		acc.Observe(fmt.Sprintf("flood-%d", i))
	}
	// A pre-ceiling key must still count exactly after overflow.
	acc.Observe("key-0")
	acc.Observe("key-0")

	if len(acc.freq) != ceiling {
		t.Fatalf("table size = %d, want exactly %d (bounded)", len(acc.freq), ceiling)
	}

	cat := acc.Snapshot().Categorical
	if cat.OtherCount != 500 {
		t.Fatalf("other bucket = %d, want 500", cat.OtherCount)
	}
	if !cat.DistinctIsEstimate {
		t.Fatalf("distinct not flagged approximate after overflow")
	}
	// 508 true distincts; allow the sketch its ~3% error with margin.
	if cat.Distinct < 450 || cat.Distinct > 570 {
		t.Fatalf("distinct estimate = %d, want near 508", cat.Distinct)
	}
	if cat.TopK[0].Value != "key-0" || cat.TopK[0].Count != 3 {
		t.Fatalf("topK[0] = %+v, want key-0 with count 3", cat.TopK[0])
	}
}

/*
Test_CategoricalAcc_TopKSmallerTable: asking for more top values than the
table holds returns the whole table, not padding.
*/
func Test_CategoricalAcc_TopKSmallerTable(t *testing.T) {
	acc := newTestCategorical(100, 10)
	acc.Observe("only")

	cat := acc.Snapshot().Categorical
	if len(cat.TopK) != 1 {
		t.Fatalf("topK len = %d, want 1", len(cat.TopK))
	}
}
