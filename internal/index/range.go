package index

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/btree"
)

// rangeItem is one distinct integer value and its posting set.
type rangeItem struct {
	value int64
	ids   *roaring64.Bitmap
}

// RangeIndex keeps distinct integer values in an ordered tree so a range
// lookup is a bounded ascent from min to max inclusive.
type RangeIndex struct {
	tree *btree.BTreeG[*rangeItem]
}

// NewRange builds an empty range index.
func NewRange() *RangeIndex {
	return &RangeIndex{
		tree: btree.NewG(32, func(a, b *rangeItem) bool {
			return a.value < b.value
		}),
	}
}

// Insert records that row id holds integer value v.
func (idx *RangeIndex) Insert(v int64, id int64) {
	probe := &rangeItem{value: v}
	item, ok := idx.tree.Get(probe)
	if !ok {
		item = &rangeItem{value: v, ids: roaring64.New()}
		idx.tree.ReplaceOrInsert(item)
	}
	item.ids.Add(idBits(id))
}

// Remove drops row id from value v's posting set. Empty entries are pruned.
func (idx *RangeIndex) Remove(v int64, id int64) {
	probe := &rangeItem{value: v}
	item, ok := idx.tree.Get(probe)
	if !ok {
		return
	}
	item.ids.Remove(idBits(id))
	if item.ids.IsEmpty() {
		idx.tree.Delete(probe)
	}
}

// Lookup returns the union of posting sets for every stored value in
// [min, max], both bounds inclusive. min > max yields an empty set. The
// result is owned by the caller.
func (idx *RangeIndex) Lookup(min, max int64) *roaring64.Bitmap {
	result := roaring64.New()
	if min > max {
		return result
	}
	idx.tree.AscendGreaterOrEqual(&rangeItem{value: min}, func(item *rangeItem) bool {
		if item.value > max {
			return false
		}
		result.Or(item.ids)
		return true
	})
	return result
}

// DistinctValues returns the number of distinct values currently indexed.
func (idx *RangeIndex) DistinctValues() int {
	return idx.tree.Len()
}
