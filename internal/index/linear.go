package index

import "github.com/lstorego/lstore/internal/rid"

// VersionScanner is supplied by the table engine: given a column value and
// a relative version (0 = current, negative = that many updates back), it
// walks the column's base/tail pages and indirection chains directly,
// without consulting any index. The table owns the page layout, so the
// scan itself lives there; Linear is just the Index-shaped handle to it.
type VersionScanner func(value int64, relVer int) ([]rid.RID, error)

// RangeScanner is the Range-shaped counterpart to VersionScanner.
type RangeScanner func(lo, hi int64) ([]rid.RID, error)

// Linear is the "DumbIndex" fallback (spec.md §4.5.3): it holds no
// structure of its own and scans every base page of the column on every
// query. It answers the historical version lookups the hashtable can't
// (as the B+-tree also does), and is the only one usable before any index
// has been built over a column.
type Linear struct {
	scan      VersionScanner
	scanRange RangeScanner
}

// NewLinear wires a Linear index to the table's scan callbacks.
func NewLinear(scan VersionScanner, scanRange RangeScanner) *Linear {
	return &Linear{scan: scan, scanRange: scanRange}
}

// Insert/Update/Delete are no-ops: a linear scan always reflects current
// page contents, so there is nothing to maintain.
func (l *Linear) Insert(value int64, r rid.RID) error                       { return nil }
func (l *Linear) Update(prevValue int64, r rid.RID, newValue int64) error   { return nil }
func (l *Linear) Delete(value int64, r rid.RID) error                       { return nil }

func (l *Linear) Point(value int64) ([]rid.RID, error) {
	return l.scan(value, 0)
}

func (l *Linear) Range(lo, hi int64) ([]rid.RID, error) {
	return l.scanRange(lo, hi)
}

func (l *Linear) PointVersion(value int64, relVer int) ([]rid.RID, error) {
	return l.scan(value, relVer)
}
