// Package report renders a finished run as a plain-text analysis report.
// The layout is a fixed sequence of labeled sections so runs are easy to
// diff and grep.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"flatprof/internal/pipeline"
	"flatprof/internal/stats"
)

// Info carries the file-level facts that are not part of the run summary.
type Info struct {
	Path          string
	Encoding      string
	Delimiter     rune
	FileSizeBytes int64
}

const (
	bannerWidth  = 80
	sectionWidth = 40
	barWidth     = 30
)

// Render writes the full report for a run.
func Render(w io.Writer, info Info, s *pipeline.Summary) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", bannerWidth) + "\n")
	b.WriteString("FLAT FILE ANALYSIS REPORT\n")
	b.WriteString(strings.Repeat("=", bannerWidth) + "\n\n")

	writeFileInfo(&b, info, s)
	writeColumnInfo(&b, s)
	writeNullAnalysis(&b, s)
	writeDescriptiveStats(&b, s)
	writeRunSummary(&b, s)

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + ":\n")
	b.WriteString(strings.Repeat("-", sectionWidth) + "\n")
}

func writeFileInfo(b *strings.Builder, info Info, s *pipeline.Summary) {
	section(b, "FILE INFORMATION")
	fmt.Fprintf(b, "File path: %s\n", info.Path)
	fmt.Fprintf(b, "Encoding: %s\n", info.Encoding)
	fmt.Fprintf(b, "Separator: %q\n", info.Delimiter)
	fmt.Fprintf(b, "Total rows: %s\n", humanize.Comma(s.RowsSeen))
	fmt.Fprintf(b, "Total columns: %d\n", len(s.Columns))
	if info.FileSizeBytes > 0 {
		fmt.Fprintf(b, "File size: %s\n", humanize.Bytes(uint64(info.FileSizeBytes)))
	}
	b.WriteString("\n")
}

func writeColumnInfo(b *strings.Builder, s *pipeline.Summary) {
	section(b, "COLUMN INFORMATION")
	for _, col := range s.Columns {
		fmt.Fprintf(b, "%s: %s\n", col.Name, kindLabel(col.Kind))
	}
	b.WriteString("\n")
}

func writeNullAnalysis(b *strings.Builder, s *pipeline.Summary) {
	section(b, "NULL VALUE ANALYSIS")
	any := false
	for _, col := range s.Columns {
		if ratio := col.NullRatio(); ratio > 0 {
			fmt.Fprintf(b, "%s: %.2f%% null values\n", col.Name, ratio*100)
			any = true
		}
	}
	if !any {
		b.WriteString("No null values found\n")
	}
	b.WriteString("\n")
}

func writeDescriptiveStats(b *strings.Builder, s *pipeline.Summary) {
	section(b, "DESCRIPTIVE STATISTICS")

	var numeric, categorical []stats.Snapshot
	for _, col := range s.Columns {
		if col.Kind == stats.KindNumeric {
			numeric = append(numeric, col)
		} else {
			categorical = append(categorical, col)
		}
	}

	if len(numeric) > 0 {
		b.WriteString("Numeric Columns:\n")
		for _, col := range numeric {
			n := col.Numeric
			fmt.Fprintf(b, "  %s:\n", col.Name)
			if n == nil || n.Count == 0 {
				b.WriteString("    No numeric values\n")
				continue
			}
			fmt.Fprintf(b, "    Count: %s\n", humanize.Comma(n.Count))
			fmt.Fprintf(b, "    Mean: %s\n", formatFloat(n.Mean))
			fmt.Fprintf(b, "    Min: %s\n", formatFloat(n.Min))
			fmt.Fprintf(b, "    Max: %s\n", formatFloat(n.Max))
			fmt.Fprintf(b, "    Std dev: %s\n", formatFloat(n.StdDev))
			if n.ParseFailures > 0 {
				fmt.Fprintf(b, "    Parse failures: %s\n", humanize.Comma(n.ParseFailures))
			}
		}
	}

	if len(categorical) > 0 {
		if len(numeric) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Categorical Columns:\n")
		for _, col := range categorical {
			c := col.Categorical
			fmt.Fprintf(b, "  %s:\n", col.Name)
			if c == nil {
				continue
			}
			approx := ""
			if c.DistinctIsEstimate {
				approx = "~"
			}
			fmt.Fprintf(b, "    Unique values: %s%s\n", approx, humanize.Comma(c.Distinct))
			if len(c.TopK) > 0 {
				fmt.Fprintf(b, "    Top %d values:\n", len(c.TopK))
				max := c.TopK[0].Count
				for _, vc := range c.TopK {
					fmt.Fprintf(b, "      %-20s %10s  %s\n",
						truncate(vc.Value, 20), humanize.Comma(vc.Count), bar(vc.Count, max))
				}
			}
			if c.OtherCount > 0 {
				fmt.Fprintf(b, "    Other values (beyond table ceiling): %s\n", humanize.Comma(c.OtherCount))
			}
		}
	}
	b.WriteString("\n")
}

func writeRunSummary(b *strings.Builder, s *pipeline.Summary) {
	section(b, "RUN SUMMARY")
	fmt.Fprintf(b, "State: %s\n", s.State)
	fmt.Fprintf(b, "Rows processed: %s\n", humanize.Comma(s.RowsSeen))
	fmt.Fprintf(b, "Rows skipped (malformed): %s\n", humanize.Comma(s.RowsMalformed))
	fmt.Fprintf(b, "Rows with decode errors: %s\n", humanize.Comma(s.RowsDecodeErrors))
	fmt.Fprintf(b, "Batches: %s\n", humanize.Comma(s.Batches))
	fmt.Fprintf(b, "Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	if s.PeakRSSBytes > 0 {
		fmt.Fprintf(b, "Peak memory: %s\n", humanize.Bytes(uint64(s.PeakRSSBytes)))
	}
	if s.ErrKind != pipeline.ErrNone {
		fmt.Fprintf(b, "Failure: %s at row %d\n", s.ErrKind, s.FailedRow)
	}
}

// bar renders a proportional ASCII bar, always at least one mark for a
// non-zero count.
func bar(count, max int64) string {
	if max <= 0 || count <= 0 {
		return ""
	}
	n := int(float64(count) / float64(max) * barWidth)
	if n < 1 {
		n = 1
	}
	return strings.Repeat("#", n)
}

// truncate shortens s to at most n bytes, never cutting inside a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}

func kindLabel(k stats.ColumnKind) string {
	if k == stats.KindNumeric {
		return "numeric"
	}
	return "categorical"
}
