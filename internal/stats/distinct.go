package stats

import (
	"math"
	"math/bits"

	"github.com/zeebo/xxh3"
)

// distinctPrecision is the HyperLogLog precision: 2^10 = 1024 one-byte
// registers, a fixed 1 KiB per categorical column regardless of input size.
// That gives a relative error around 1.04/sqrt(1024) ≈ 3.3%, plenty for the
// "unique count is approximate past the ceiling" contract.
const distinctPrecision = 10

// distinctEstimator is a small fixed-size HyperLogLog sketch over xxh3
// hashes. It answers "roughly how many distinct strings were added" and is
// only consulted once a column's exact frequency table has overflowed its
// cardinality ceiling.
type distinctEstimator struct {
	registers [1 << distinctPrecision]uint8
}

func newDistinctEstimator() *distinctEstimator {
	return &distinctEstimator{}
}

// Add folds one value into the sketch. O(1), no allocation.
func (e *distinctEstimator) Add(v string) {
	h := xxh3.HashString(v)
	idx := h >> (64 - distinctPrecision)
	rest := h << distinctPrecision
	rank := uint8(bits.LeadingZeros64(rest)) + 1
	if rank > 64-distinctPrecision+1 {
		rank = 64 - distinctPrecision + 1
	}
	if rank > e.registers[idx] {
		e.registers[idx] = rank
	}
}

// Estimate returns the approximate number of distinct values added so far.
// It applies the standard small-range linear-counting correction, so exact
// small cardinalities still come out close to exact.
func (e *distinctEstimator) Estimate() int64 {
	const m = float64(1 << distinctPrecision)
	alpha := 0.7213 / (1 + 1.079/m)

	var sum float64
	zeros := 0
	for _, r := range e.registers {
		sum += 1 / float64(uint64(1)<<r)
		if r == 0 {
			zeros++
		}
	}
	est := alpha * m * m / sum

	if est <= 2.5*m && zeros > 0 {
		est = m * math.Log(m/float64(zeros))
	}
	return int64(est + 0.5)
}
