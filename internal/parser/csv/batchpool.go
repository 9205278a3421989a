package csv

import "sync"

// Batch is one bounded window of parsed rows. Batches and their row slices
// are pooled; after Free() the memory is recycled and must not be touched.
type Batch struct {
	// Start is the 1-based data row number of Rows[0].
	Start int64
	// Rows holds the parsed cells, one slice per row.
	Rows [][]string
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int { return len(b.Rows) }

var batchPool = sync.Pool{
	New: func() any { return &Batch{} },
}

// getBatch fetches a pooled batch sized for up to capRows rows.
func getBatch(capRows int) *Batch {
	b := batchPool.Get().(*Batch)
	if cap(b.Rows) < capRows {
		b.Rows = make([][]string, 0, capRows)
	} else {
		b.Rows = b.Rows[:0]
	}
	b.Start = 0
	return b
}

// appendRow copies rec into the batch, reusing a recycled row slice when one
// with enough capacity is available. The copy matters: the CSV reader reuses
// its record slice between calls.
func (b *Batch) appendRow(rec []string) {
	n := len(b.Rows)
	var row []string
	if n < cap(b.Rows) {
		b.Rows = b.Rows[:n+1]
		row = b.Rows[n]
	} else {
		b.Rows = append(b.Rows, nil)
	}
	if cap(row) < len(rec) {
		row = make([]string, len(rec))
	} else {
		row = row[:len(rec)]
	}
	copy(row, rec)
	b.Rows[n] = row
}

// Free drops the cell references so the strings can be collected, then
// returns the batch to the pool.
func (b *Batch) Free() {
	for _, row := range b.Rows {
		for i := range row {
			row[i] = ""
		}
	}
	b.Rows = b.Rows[:0]
	batchPool.Put(b)
}
