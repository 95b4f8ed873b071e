// Package querylayer implements the programmatic query API described in
// spec.md §6.1: primary/secondary-key select, version-relative select,
// range sum, and the increment convenience method. It is the only layer
// that ever returns a sentinel failure value instead of an error — every
// internal error from the engine or an index is swallowed here and turned
// into false, an empty slice, or 0 (spec.md §7).
package querylayer

import (
	"github.com/lstorego/lstore/internal/engine"
	"github.com/lstorego/lstore/internal/rid"
)

// Record is one materialized row: its RID, its primary-key value, and its
// projected column values (entries outside the requested mask are zero).
type Record struct {
	RID     rid.RID
	Key     int64
	Columns []int64
}

// Query binds the spec.md §6.1 API to one table.
type Query struct {
	table *engine.Table
}

// New binds a Query to tb.
func New(tb *engine.Table) *Query {
	return &Query{table: tb}
}

// Insert appends a new row. vals must have length D.
func (q *Query) Insert(vals []int64) bool {
	return q.table.Insert(vals)
}

// Update applies a tail update to the row with primary key pk. vals[i] ==
// nil means "no change" for column i.
func (q *Query) Update(pk int64, vals []*int64) bool {
	return q.table.Update(pk, vals)
}

// Delete tombstones the row with primary key pk.
func (q *Query) Delete(pk int64) bool {
	return q.table.Delete(pk)
}

// Select returns every current-version row whose column keyCol equals key,
// projected through mask.
func (q *Query) Select(key int64, keyCol int, mask []bool) []Record {
	return q.selectVersion(key, keyCol, mask, 0)
}

// SelectVersion is Select at a relative version (relVer <= 0).
func (q *Query) SelectVersion(key int64, keyCol int, mask []bool, relVer int) []Record {
	return q.selectVersion(key, keyCol, mask, relVer)
}

func (q *Query) selectVersion(key int64, keyCol int, mask []bool, relVer int) []Record {
	var rids []rid.RID
	var err error
	if relVer == 0 {
		rids, err = q.table.IndexPoint(keyCol, key)
	} else {
		rids, err = q.table.IndexPointVersion(keyCol, key, relVer)
	}
	if err != nil {
		return nil
	}

	out := make([]Record, 0, len(rids))
	for _, r := range rids {
		vals, found, err := q.table.LocateRecord(r, mask, relVer)
		if err != nil || !found {
			continue
		}
		pk, err := q.table.ColumnValue(q.table.KeyCol(), r)
		if err != nil {
			continue
		}
		out = append(out, Record{RID: r, Key: pk, Columns: vals})
	}
	return out
}

// Sum aggregates column col over primary keys in [lo, hi].
func (q *Query) Sum(lo, hi int64, col int) int64 {
	return q.SumVersion(lo, hi, col, 0)
}

// SumVersion is Sum at a relative version (relVer <= 0).
func (q *Query) SumVersion(lo, hi int64, col int, relVer int) int64 {
	total, err := q.table.Sum(lo, hi, col, relVer)
	if err != nil {
		return 0
	}
	return total
}

// Increment reads column col of the row with primary key pk, adds one, and
// writes it back as a single-column update.
func (q *Query) Increment(pk int64, col int) bool {
	mask := make([]bool, q.table.D())
	mask[col] = true
	rows := q.Select(pk, q.table.KeyCol(), mask)
	if len(rows) != 1 {
		return false
	}
	next := rows[0].Columns[col] + 1
	vals := make([]*int64, q.table.D())
	vals[col] = &next
	return q.table.Update(pk, vals)
}
