package index

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/quickset/quickset/internal/bloom"
	"github.com/quickset/quickset/pkg/types"
)

// ExactIndex maps whole values to the set of rows holding them. String
// columns carry a bloom filter in front of the posting map so misses on
// high-cardinality columns are rejected without a map probe. The filter is
// insert-only; a value removed from the index may still pass the filter and
// merely falls through to an empty posting set.
type ExactIndex struct {
	postings map[string]*roaring64.Bitmap
	filter   *bloom.Filter
}

// NewExact builds an exact index. expectedItems sizes the bloom filter and
// is only consulted when withBloom is set.
func NewExact(withBloom bool, expectedItems int) *ExactIndex {
	idx := &ExactIndex{
		postings: make(map[string]*roaring64.Bitmap),
	}
	if withBloom {
		idx.filter = bloom.NewWithEstimates(expectedItems, 0.01)
	}
	return idx
}

// Insert records that row id holds value v.
func (idx *ExactIndex) Insert(v types.Value, id int64) {
	key := v.Key()
	bm, ok := idx.postings[key]
	if !ok {
		bm = roaring64.New()
		idx.postings[key] = bm
	}
	bm.Add(idBits(id))
	if idx.filter != nil {
		idx.filter.Add([]byte(key))
	}
}

// Remove drops row id from value v's posting set. Empty sets are pruned.
func (idx *ExactIndex) Remove(v types.Value, id int64) {
	key := v.Key()
	bm, ok := idx.postings[key]
	if !ok {
		return
	}
	bm.Remove(idBits(id))
	if bm.IsEmpty() {
		delete(idx.postings, key)
	}
}

// Lookup returns the ids of rows holding exactly v. The result is owned by
// the caller.
func (idx *ExactIndex) Lookup(v types.Value) *roaring64.Bitmap {
	key := v.Key()
	if idx.filter != nil && !idx.filter.Contains([]byte(key)) {
		return roaring64.New()
	}
	bm, ok := idx.postings[key]
	if !ok {
		return roaring64.New()
	}
	return bm.Clone()
}

// DistinctValues returns the number of distinct values currently indexed.
func (idx *ExactIndex) DistinctValues() int {
	return len(idx.postings)
}
