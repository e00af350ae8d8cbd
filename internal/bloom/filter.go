// Package bloom provides a probabilistic data structure for efficient membership testing.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter provides probabilistic membership testing with a configurable false
// positive rate. It guarantees no false negatives: if an item was added,
// Contains always returns true. The filter is not internally synchronized;
// callers serialize access (the owning table holds its lock across all index
// operations).
type Filter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// New creates a Filter with the specified number of bits and hash functions.
func New(numBits, numHashes int) *Filter {
	if numBits <= 0 {
		numBits = 1024
	}
	if numHashes <= 0 {
		numHashes = 7
	}

	// Round up to whole 64-bit words
	numWords := (numBits + 63) / 64
	actualBits := uint64(numWords * 64)

	return &Filter{
		bits:      make([]uint64, numWords),
		numBits:   actualBits,
		numHashes: uint64(numHashes),
	}
}

// NewWithEstimates creates a Filter optimized for the expected number of
// items and target false positive rate.
func NewWithEstimates(expectedItems int, targetFPR float64) *Filter {
	numBits, numHashes := OptimalParameters(expectedItems, targetFPR)
	return New(numBits, numHashes)
}

// OptimalParameters calculates the optimal number of bits and hash functions
// for a given expected number of items and target false positive rate.
//
// The formulas are:
//   - m = -n * ln(p) / (ln(2)^2)  where m = bits, n = items, p = FPR
//   - k = (m/n) * ln(2)           where k = hash functions
func OptimalParameters(expectedItems int, targetFPR float64) (numBits, numHashes int) {
	if expectedItems <= 0 {
		expectedItems = 1000
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	n := float64(expectedItems)
	p := targetFPR
	ln2 := math.Ln2

	m := -n * math.Log(p) / (ln2 * ln2)
	numBits = int(math.Ceil(m))

	k := (m / n) * ln2
	numHashes = int(math.Ceil(k))

	if numBits < 64 {
		numBits = 64
	}
	if numHashes < 1 {
		numHashes = 1
	}

	return numBits, numHashes
}

// Add adds an item to the filter. Items are never removed; a stale entry
// costs at most one wasted lookup in the structure behind the filter.
func (f *Filter) Add(item []byte) {
	h1, h2 := hash128(item)

	for i := uint64(0); i < f.numHashes; i++ {
		// Double hashing: h(i) = h1 + i*h2
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// Contains tests whether an item might be in the filter. A true result may
// be a false positive; a false result is definitive.
func (f *Filter) Contains(item []byte) bool {
	h1, h2 := hash128(item)

	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// NumBits returns the number of bits in the filter.
func (f *Filter) NumBits() int {
	return int(f.numBits)
}

// NumHashes returns the number of hash functions used.
func (f *Filter) NumHashes() int {
	return int(f.numHashes)
}

// Count returns the number of items added to the filter.
func (f *Filter) Count() uint64 {
	return f.count
}

// FalsePositiveRate returns the estimated false positive rate based on the
// current fill: (1 - e^(-k*n/m))^k.
func (f *Filter) FalsePositiveRate() float64 {
	if f.count == 0 {
		return 0
	}

	k := float64(f.numHashes)
	n := float64(f.count)
	m := float64(f.numBits)

	return math.Pow(1-math.Exp(-k*n/m), k)
}

// hash128 computes the murmur3 128-bit hash and returns its two 64-bit halves.
func hash128(item []byte) (uint64, uint64) {
	h := murmur3.New128()
	h.Write(item)
	return h.Sum128()
}
