package engine

// Sum aggregates column col over every row whose primary key falls in
// [lo, hi] (swapped if hi < lo), at relative version relVer. Empty range
// sums to 0 (spec.md §4.6.4).
func (tb *Table) Sum(lo, hi int64, col int, relVer int) (int64, error) {
	if hi < lo {
		lo, hi = hi, lo
	}
	rids, err := tb.indexes[tb.keyCol].Range(lo, hi)
	if err != nil {
		return 0, err
	}
	mask := make([]bool, tb.d)
	mask[col] = true

	var total int64
	for _, r := range rids {
		vals, found, err := tb.LocateRecord(r, mask, relVer)
		if err != nil {
			return 0, err
		}
		if !found {
			continue
		}
		total += vals[col]
	}
	return total, nil
}
