// Package index implements the three secondary-index variants a table can
// pick per column: an ordered, versioned B+-tree; an unordered hashtable
// with a reverse map; and a linear-scan fallback used both for columns
// with no built index and for historical lookups the hashtable cannot
// serve. All three implement Index so the table engine can treat the
// per-column choice as fixed at creation time and never branch on it again.
package index

import (
	"errors"

	"github.com/lstorego/lstore/internal/rid"
)

// ErrKeyNotFound is returned by lookups that expect an existing entry.
var ErrKeyNotFound = errors.New("index: key not found")

// ErrVersionUnsupported is returned by PointVersion when the index variant
// cannot serve a relative version on its own (the hashtable index beyond
// rel_ver 0); callers fall back to a linear-scan Index for that query.
var ErrVersionUnsupported = errors.New("index: relative version not servable by this index")

// Index is the per-column secondary index contract. Kind is fixed when a
// table is created (spec.md §4.5.4) and never changes afterward.
type Index interface {
	Insert(value int64, r rid.RID) error
	Update(prevValue int64, r rid.RID, newValue int64) error
	Delete(value int64, r rid.RID) error
	Point(value int64) ([]rid.RID, error)
	Range(lo, hi int64) ([]rid.RID, error)
	PointVersion(value int64, relVer int) ([]rid.RID, error)
}

// Kind names a selectable index variant.
type Kind int

const (
	KindBTree Kind = iota
	KindHash
	KindLinear
)

func (k Kind) String() string {
	switch k {
	case KindBTree:
		return "btree"
	case KindHash:
		return "hash"
	case KindLinear:
		return "linear"
	default:
		return "unknown"
	}
}
