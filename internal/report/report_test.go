package report

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"flatprof/internal/pipeline"
	"flatprof/internal/stats"
)

func sampleSummary() *pipeline.Summary {
	return &pipeline.Summary{
		Job:      "orders",
		State:    pipeline.StateDone,
		RowsSeen: 12345,
		Batches:  2,
		Elapsed:  1234 * time.Millisecond,
		Columns: []stats.Snapshot{
			{
				Name: "amount", Kind: stats.KindNumeric, Position: 0,
				Rows: 12345, Nulls: 100,
				Numeric: &stats.NumericSnapshot{
					Count: 12245, Mean: 10.5, Min: 0.5, Max: 99.5, StdDev: 3.25,
				},
			},
			{
				Name: "city", Kind: stats.KindCategorical, Position: 1,
				Rows: 12345, Nulls: 0,
				Categorical: &stats.CategoricalSnapshot{
					Distinct:           4800,
					DistinctIsEstimate: true,
					OtherCount:         700,
					TopK: []stats.ValueCount{
						{Value: "Praha", Count: 6000},
						{Value: "Brno", Count: 3000},
						{Value: "a-very-long-city-name-that-will-not-fit", Count: 10},
					},
				},
			},
		},
	}
}

/*
Test_Render_Sections checks that every fixed section appears, in order.
*/
func Test_Render_Sections(t *testing.T) {
	var sb strings.Builder
	info := Info{Path: "/data/orders.csv", Encoding: "utf-8", Delimiter: ';', FileSizeBytes: 1 << 20}

	if err := Render(&sb, info, sampleSummary()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()

	sections := []string{
		"FLAT FILE ANALYSIS REPORT",
		"FILE INFORMATION:",
		"COLUMN INFORMATION:",
		"NULL VALUE ANALYSIS:",
		"DESCRIPTIVE STATISTICS:",
		"RUN SUMMARY:",
	}
	last := -1
	for _, sec := range sections {
		idx := strings.Index(out, sec)
		if idx < 0 {
			t.Fatalf("section %q missing from report:\n%s", sec, out)
		}
		if idx < last {
			t.Fatalf("section %q out of order", sec)
		}
		last = idx
	}
}

/*
Test_Render_Content spot-checks the rendered values: humanized counts, the
approximate-distinct marker, truncation, and the separator quoting.
*/
func Test_Render_Content(t *testing.T) {
	var sb strings.Builder
	info := Info{Path: "/data/orders.csv", Encoding: "windows-1252", Delimiter: '\t'}

	if err := Render(&sb, info, sampleSummary()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"Total rows: 12,345",
		"Encoding: windows-1252",
		`Separator: '\t'`,
		"amount: numeric",
		"city: categorical",
		"amount: 0.81% null values",
		"Mean: 10.50",
		"Unique values: ~4,800",
		"Top 3 values:",
		"Other values (beyond table ceiling): 700",
		"Elapsed: 1.234s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "a-very-long-city-name-that-will-not-fit") {
		t.Fatalf("long value not truncated")
	}
	if !strings.Contains(out, "a-very-long-city-...") {
		t.Fatalf("truncated value missing")
	}
}

/*
Test_Render_Bars: the most frequent value gets the full bar and bars shrink
proportionally but never vanish for non-zero counts.
*/
func Test_Render_Bars(t *testing.T) {
	if got := bar(6000, 6000); len(got) != barWidth {
		t.Fatalf("full bar len = %d, want %d", len(got), barWidth)
	}
	if got := bar(3000, 6000); len(got) != barWidth/2 {
		t.Fatalf("half bar len = %d, want %d", len(got), barWidth/2)
	}
	if got := bar(1, 6000); got != "#" {
		t.Fatalf("minimal bar = %q, want single mark", got)
	}
	if got := bar(0, 6000); got != "" {
		t.Fatalf("zero bar = %q, want empty", got)
	}
}

/*
Test_Render_EmptyNumeric: a numeric column with no parsable values renders
N/A instead of NaN.
*/
func Test_Render_EmptyNumeric(t *testing.T) {
	s := &pipeline.Summary{
		State:   pipeline.StateDone,
		Columns: []stats.Snapshot{{
			Name: "v", Kind: stats.KindNumeric,
			Numeric: &stats.NumericSnapshot{Count: 0, Mean: math.NaN()},
		}},
	}

	var sb strings.Builder
	if err := Render(&sb, Info{Path: "x.csv", Encoding: "utf-8", Delimiter: ','}, s); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()
	if strings.Contains(out, "NaN") {
		t.Fatalf("report leaks NaN:\n%s", out)
	}
	if !strings.Contains(out, "No numeric values") {
		t.Fatalf("empty numeric column not called out:\n%s", out)
	}
}

/*
Test_Render_FailureLine: failed runs surface the classification and row.
*/
func Test_Render_FailureLine(t *testing.T) {
	s := sampleSummary()
	s.State = pipeline.StateFailed
	s.ErrKind = pipeline.ErrKindDecode
	s.FailedRow = 42

	var sb strings.Builder
	if err := Render(&sb, Info{Path: "x.csv", Encoding: "utf-8", Delimiter: ','}, s); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(sb.String(), "Failure: decode_error at row 42") {
		t.Fatalf("failure line missing:\n%s", sb.String())
	}
}

/*
Test_Truncate_RuneBoundary: truncation must never split a multibyte rune,
so truncated non-ASCII values stay valid UTF-8 in the report.
*/
func Test_Truncate_RuneBoundary(t *testing.T) {
	// 15 two-byte runes (30 bytes); a byte-17 cut would land mid-rune.
	long := strings.Repeat("é", 15)
	got := truncate(long, 20)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate(%q) = %q, invalid UTF-8", long, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate(%q) = %q, want ... suffix", long, got)
	}
	if len(got) > 20 {
		t.Fatalf("truncate length = %d, want <= 20", len(got))
	}
	if got := truncate("short", 20); got != "short" {
		t.Fatalf("truncate(short) = %q, want unchanged", got)
	}
}
