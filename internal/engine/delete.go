package engine

import "github.com/lstorego/lstore/internal/rid"

// Delete tombstones the row with primary key pk and removes it from every
// per-column index, looked up via its current values. Tail storage is left
// in place. Idempotent: deleting an already-tombstoned row returns false
// without modifying state (spec.md §4.6.5).
func (tb *Table) Delete(pk int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	rids, err := tb.indexes[tb.keyCol].Point(pk)
	if err != nil || len(rids) != 1 {
		return false
	}
	rb := rids[0]

	indRaw, err := tb.readColumnByRID(colIndirection, rb)
	if err != nil {
		return false
	}
	if tb.codec.IsTombstone(rid.RID(indRaw)) {
		return false
	}

	curVals, found, err := tb.LocateRecord(rb, fullMask(tb.d), 0)
	if err != nil || !found {
		return false
	}

	if err := tb.overwriteColumnByRID(colIndirection, rb, int64(tb.codec.Tombstone())); err != nil {
		return false
	}
	for i := 0; i < tb.d; i++ {
		if err := tb.indexes[i].Delete(curVals[i], rb); err != nil {
			return false
		}
	}
	return true
}
