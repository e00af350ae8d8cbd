package index

import (
	"sort"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// FulltextIndex is an inverted index from tokens to the rows whose value
// contains them. Insert, remove and lookup all tokenize identically, so a
// stored value is always findable by any of its own tokens.
type FulltextIndex struct {
	tokens map[string]*roaring64.Bitmap
}

// NewFulltext builds an empty full-text index.
func NewFulltext() *FulltextIndex {
	return &FulltextIndex{
		tokens: make(map[string]*roaring64.Bitmap),
	}
}

// Tokenize lowercases s and splits it on runs of non-alphanumeric
// characters, dropping empty tokens. A value of punctuation only yields no
// tokens at all.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Insert records row id under every token of s.
func (idx *FulltextIndex) Insert(s string, id int64) {
	for _, tok := range Tokenize(s) {
		bm, ok := idx.tokens[tok]
		if !ok {
			bm = roaring64.New()
			idx.tokens[tok] = bm
		}
		bm.Add(idBits(id))
	}
}

// Remove drops row id from every token of s. Duplicate tokens within one
// value are harmless; bitmap removal is idempotent.
func (idx *FulltextIndex) Remove(s string, id int64) {
	for _, tok := range Tokenize(s) {
		bm, ok := idx.tokens[tok]
		if !ok {
			continue
		}
		bm.Remove(idBits(id))
		if bm.IsEmpty() {
			delete(idx.tokens, tok)
		}
	}
}

// Lookup returns the rows containing every token of the query. A query with
// no tokens matches nothing. Intersection starts from the smallest posting
// set and stops as soon as it empties. The result is owned by the caller.
func (idx *FulltextIndex) Lookup(query string) *roaring64.Bitmap {
	toks := Tokenize(query)
	if len(toks) == 0 {
		return roaring64.New()
	}

	sets := make([]*roaring64.Bitmap, 0, len(toks))
	for _, tok := range toks {
		bm, ok := idx.tokens[tok]
		if !ok {
			return roaring64.New()
		}
		sets = append(sets, bm)
	}

	sort.Slice(sets, func(i, j int) bool {
		return sets[i].GetCardinality() < sets[j].GetCardinality()
	})

	result := sets[0].Clone()
	for _, bm := range sets[1:] {
		result.And(bm)
		if result.IsEmpty() {
			break
		}
	}
	return result
}

// DistinctTokens returns the number of distinct tokens currently indexed.
func (idx *FulltextIndex) DistinctTokens() int {
	return len(idx.tokens)
}
