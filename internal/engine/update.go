package engine

import "github.com/lstorego/lstore/internal/rid"

// Update appends a tail record for the row whose primary key is pk.
// vals[i] == nil means "no change" for column i; vals must have length D.
// Fails if pk is absent, the row is tombstoned, or vals asks to move the
// primary key onto a value already in use (spec.md §4.6.2).
func (tb *Table) Update(pk int64, vals []*int64) bool {
	if len(vals) != tb.d {
		return false
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	rids, err := tb.indexes[tb.keyCol].Point(pk)
	if err != nil || len(rids) != 1 {
		return false
	}
	rb := rids[0]

	prevRaw, err := tb.readColumnByRID(colIndirection, rb)
	if err != nil {
		return false
	}
	rprev := rid.RID(prevRaw)
	if tb.codec.IsTombstone(rprev) {
		return false
	}

	if newPK := vals[tb.keyCol]; newPK != nil && *newPK != pk {
		if existing, err := tb.indexes[tb.keyCol].Point(*newPK); err != nil || len(existing) > 0 {
			return false
		}
	}

	oldVals := make([]int64, tb.d)
	finalVals := make([]int64, tb.d)
	var schema int64
	for i := 0; i < tb.d; i++ {
		old, err := tb.readColumnByRID(dataCol(i), rprev)
		if err != nil {
			return false
		}
		oldVals[i] = old
		if vals[i] != nil {
			finalVals[i] = *vals[i]
		} else if tb.cumulative {
			finalVals[i] = old
		}
	}
	if tb.cumulative {
		schema = (int64(1) << uint(tb.d)) - 1
	} else {
		for i := 0; i < tb.d; i++ {
			if vals[i] != nil {
				schema |= int64(1) << uint(i)
			}
		}
	}

	if tb.tailOffset >= tb.capacity() {
		tb.currentTailPage++
		tb.tailOffset = 0
	}
	o := int64(tb.tailOffset)
	p := tb.currentTailPage
	rt, err := tb.codec.Pack(true, p, o)
	if err != nil {
		return false
	}

	now := tb.now()
	if err := tb.appendRow(true, p, rt, rprev, schema, now, now, finalVals); err != nil {
		return false
	}

	_, basePageNum, _ := tb.codec.Unpack(rb)
	for i := 0; i < tb.d; i++ {
		if schema&(int64(1)<<uint(i)) == 0 {
			continue
		}
		if err := tb.indexes[i].Update(oldVals[i], rb, finalVals[i]); err != nil {
			return false
		}
		tb.mergeSet[mergeKey{page: basePageNum, col: dataCol(i)}] = true
	}

	if err := tb.overwriteColumnByRID(colIndirection, rb, int64(rt)); err != nil {
		return false
	}

	tb.tailOffset++
	tb.updateCounter++
	return true
}

// UpdateCounter reports how many updates have happened since the last
// merge; the caller (the merge scheduler) compares it against the
// configured threshold.
func (tb *Table) UpdateCounter() int { return tb.updateCounter }

// MergeThreshold returns the configured update-count merge trigger.
func (tb *Table) MergeThreshold() int { return tb.mergeThreshold }
