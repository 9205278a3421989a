// Package csv turns a delimited byte stream into bounded batches of rows.
//
// The reader is strictly forward-only and holds at most one batch of rows in
// memory at a time. Callers own a batch until they Free() it back to the pool.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	encunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodePolicy controls what happens to a row whose decoded cells contain
// U+FFFD replacement runes, i.e. bytes the source encoding could not decode.
type DecodePolicy int

const (
	// DecodeSkip drops the damaged row and counts it. The default.
	DecodeSkip DecodePolicy = iota
	// DecodeSubstitute keeps the row, replacement runes and all, and counts it.
	DecodeSubstitute
	// DecodeAbort fails the whole run on the first damaged row.
	DecodeAbort
)

// ErrDecode is wrapped into the error returned under DecodeAbort.
var ErrDecode = errors.New("csv: undecodable bytes in row")

// Options tunes a BatchReader. Zero values get sensible defaults.
type Options struct {
	// Delimiter is the field separator. Default ','.
	Delimiter rune
	// BatchSize caps the rows per batch. Default 10000.
	BatchSize int
	// Encoding decodes the source into UTF-8. Default strict UTF-8 with
	// ill-formed bytes replaced by U+FFFD.
	Encoding encoding.Encoding
	// TrimSpace strips edge whitespace from every cell.
	TrimSpace bool
	// HasHeader treats the first record as the header line. Default via
	// NewBatchReader is true; set through the struct for headerless inputs.
	HasHeader bool
	// DecodePolicy selects the replacement-rune behavior. Default DecodeSkip.
	DecodePolicy DecodePolicy
}

// SkipCounts reports the rows the reader dropped or flagged so far.
type SkipCounts struct {
	// Malformed rows had the wrong field count or broke CSV quoting.
	Malformed int64
	// Decode rows carried U+FFFD replacements. Under DecodeSubstitute they
	// were kept anyway; under DecodeSkip they were dropped.
	Decode int64
}

// BatchReader pulls pooled row batches off a decoded CSV stream.
//
// It is not safe for concurrent use and cannot be rewound; a second pass
// means a second reader over a fresh source.
type BatchReader struct {
	src       io.Closer
	cr        *csv.Reader
	opts      Options
	header    []string
	columns   int
	row       int64 // 1-based data row counter
	malformed atomic.Int64
	decoded   atomic.Int64
	onErr     func(line int64, err error)
	done      bool
}

// NewBatchReader wraps src, reads the header line, and prepares batch
// iteration. onErr(line, err) receives recoverable row errors (soft-drop)
// and may be nil.
func NewBatchReader(src io.ReadCloser, opts Options, onErr func(line int64, err error)) (*BatchReader, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10000
	}
	if opts.Encoding == nil {
		opts.Encoding = encunicode.UTF8
	}

	cr := csv.NewReader(transform.NewReader(src, opts.Encoding.NewDecoder()))
	cr.Comma = opts.Delimiter
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // field-count enforcement is ours, soft-drop

	r := &BatchReader{
		src:   src,
		cr:    cr,
		opts:  opts,
		onErr: onErr,
	}

	if opts.HasHeader {
		hdr, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.header = StripHeaderBOM(copyRecord(hdr))
		if opts.TrimSpace {
			for i, h := range r.header {
				r.header[i] = strings.TrimSpace(h)
			}
		}
		r.columns = len(r.header)
	}
	return r, nil
}

// Header returns the header cells, BOM-stripped. Empty for headerless input
// until the first batch fixes the column count.
func (r *BatchReader) Header() []string { return r.header }

// Row returns the 1-based number of the last data row read, header excluded.
func (r *BatchReader) Row() int64 { return r.row }

// Skipped returns the running soft-drop counters.
func (r *BatchReader) Skipped() SkipCounts {
	return SkipCounts{
		Malformed: r.malformed.Load(),
		Decode:    r.decoded.Load(),
	}
}

// Next reads up to BatchSize rows into a pooled batch. It returns io.EOF
// once the stream is exhausted; a batch returned alongside nil always holds
// at least one row. The caller must Free() the batch when done with it.
func (r *BatchReader) Next(ctx context.Context) (*Batch, error) {
	if r.done {
		return nil, io.EOF
	}

	b := getBatch(r.opts.BatchSize)
	b.Start = r.row + 1

	for len(b.Rows) < r.opts.BatchSize {
		select {
		case <-ctx.Done():
			b.Free()
			return nil, ctx.Err()
		default:
		}

		rec, err := r.cr.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		r.row++
		if err != nil {
			// Only CSV-level parse errors are recoverable row problems. A
			// failing underlying reader would return the same error on every
			// retry, so it fails the run instead of the row.
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				r.done = true
				b.Free()
				return nil, fmt.Errorf("read row %d: %w", r.row, err)
			}
			r.malformed.Add(1)
			if r.onErr != nil {
				r.onErr(r.row, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		if r.columns == 0 {
			// Headerless input: the first data row fixes the width.
			r.columns = len(rec)
		}
		if len(rec) != r.columns {
			r.malformed.Add(1)
			if r.onErr != nil {
				r.onErr(r.row, fmt.Errorf("row has %d fields, want %d", len(rec), r.columns))
			}
			continue
		}

		if hasReplacement(rec) {
			r.decoded.Add(1)
			switch r.opts.DecodePolicy {
			case DecodeAbort:
				b.Free()
				return nil, fmt.Errorf("row %d: %w", r.row, ErrDecode)
			case DecodeSkip:
				if r.onErr != nil {
					r.onErr(r.row, ErrDecode)
				}
				continue
			}
			// DecodeSubstitute falls through and keeps the row.
		}

		if r.opts.TrimSpace {
			for i, v := range rec {
				if hasEdgeSpace(v) {
					rec[i] = strings.TrimSpace(v)
				}
			}
		}
		b.appendRow(rec)
	}

	if len(b.Rows) == 0 {
		b.Free()
		return nil, io.EOF
	}
	return b, nil
}

// Close releases the underlying source.
func (r *BatchReader) Close() error {
	r.done = true
	return r.src.Close()
}

// hasReplacement reports whether any cell carries a U+FFFD replacement rune,
// the decoder's marker for bytes it could not map.
func hasReplacement(rec []string) bool {
	for _, v := range rec {
		if strings.ContainsRune(v, utf8.RuneError) {
			return true
		}
	}
	return false
}

// hasEdgeSpace avoids the TrimSpace allocation on the common clean cell.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[0] == '\t' || s[len(s)-1] == ' ' || s[len(s)-1] == '\t'
}

func copyRecord(rec []string) []string {
	out := make([]string, len(rec))
	copy(out, rec)
	return out
}
