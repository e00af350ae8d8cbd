package index

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/btree"
)

// prefixItem is one distinct string value and its posting set.
type prefixItem struct {
	value string
	ids   *roaring64.Bitmap
}

// PrefixIndex keeps distinct string values in an ordered tree so a prefix
// lookup is a bounded ascent: seek to the prefix, accumulate until the first
// value that no longer starts with it. Cost tracks the number of matching
// values, not the corpus size.
type PrefixIndex struct {
	tree *btree.BTreeG[*prefixItem]
}

// NewPrefix builds an empty prefix index.
func NewPrefix() *PrefixIndex {
	return &PrefixIndex{
		tree: btree.NewG(32, func(a, b *prefixItem) bool {
			return a.value < b.value
		}),
	}
}

// Insert records that row id holds string value s.
func (idx *PrefixIndex) Insert(s string, id int64) {
	probe := &prefixItem{value: s}
	item, ok := idx.tree.Get(probe)
	if !ok {
		item = &prefixItem{value: s, ids: roaring64.New()}
		idx.tree.ReplaceOrInsert(item)
	}
	item.ids.Add(idBits(id))
}

// Remove drops row id from value s's posting set. Empty entries are pruned
// so the tree only holds live values.
func (idx *PrefixIndex) Remove(s string, id int64) {
	probe := &prefixItem{value: s}
	item, ok := idx.tree.Get(probe)
	if !ok {
		return
	}
	item.ids.Remove(idBits(id))
	if item.ids.IsEmpty() {
		idx.tree.Delete(probe)
	}
}

// Lookup returns the union of posting sets for every stored value starting
// with prefix. The empty prefix matches every row. The result is owned by
// the caller.
func (idx *PrefixIndex) Lookup(prefix string) *roaring64.Bitmap {
	result := roaring64.New()
	idx.tree.AscendGreaterOrEqual(&prefixItem{value: prefix}, func(item *prefixItem) bool {
		if !strings.HasPrefix(item.value, prefix) {
			return false
		}
		result.Or(item.ids)
		return true
	})
	return result
}

// DistinctValues returns the number of distinct values currently indexed.
func (idx *PrefixIndex) DistinctValues() int {
	return idx.tree.Len()
}
