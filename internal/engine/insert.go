package engine

// Insert appends a new base record, vals in column order, len(vals) == D.
// Fails (returns false) on arity mismatch or if the primary key already
// exists (spec.md §4.6.1).
func (tb *Table) Insert(vals []int64) bool {
	if len(vals) != tb.d {
		return false
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	pk := vals[tb.keyCol]
	existing, err := tb.indexes[tb.keyCol].Point(pk)
	if err != nil || len(existing) != 0 {
		return false
	}

	if tb.baseOffset >= tb.capacity() {
		tb.currentBasePage++
		tb.baseOffset = 0
	}
	o := int64(tb.baseOffset)
	p := tb.currentBasePage
	r, err := tb.codec.Pack(false, p, o)
	if err != nil {
		return false
	}

	now := tb.now()
	if err := tb.appendRow(false, p, r, r, 0, now, now, vals); err != nil {
		return false
	}
	for i, v := range vals {
		if err := tb.indexes[i].Insert(v, r); err != nil {
			return false
		}
	}
	tb.baseOffset++
	return true
}
