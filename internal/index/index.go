// Package index implements the per-column search indexes. Each variant maps
// indexed values to posting sets of row ids held as roaring bitmaps. Row ids
// are int64 identifiers stored by their uint64 bit pattern, so negative ids
// round-trip exactly.
//
// No index is internally synchronized: the owning table holds its lock
// across every call, and lookups return bitmaps owned by the caller.
package index

import (
	"github.com/quickset/quickset/pkg/types"
)

// Kind identifies an index variant.
type Kind uint8

const (
	Exact Kind = iota
	Prefix
	Fulltext
	Range
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Fulltext:
		return "fulltext"
	case Range:
		return "range"
	default:
		return "unknown"
	}
}

// ParseKind parses a search mode name into an index kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "exact":
		return Exact, true
	case "prefix":
		return Prefix, true
	case "fulltext":
		return Fulltext, true
	case "range":
		return Range, true
	default:
		return 0, false
	}
}

// KindsFor returns the index kinds built for a column type: string columns
// get exact, prefix and fulltext; integer columns get exact and range.
func KindsFor(t types.ColumnType) []Kind {
	if t == types.ColumnInt {
		return []Kind{Exact, Range}
	}
	return []Kind{Exact, Prefix, Fulltext}
}

// idBits converts a row id to its bitmap representation.
func idBits(id int64) uint64 {
	return uint64(id)
}
