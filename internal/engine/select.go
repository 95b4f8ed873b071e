package engine

import "github.com/lstorego/lstore/internal/rid"

// LocateRecord materializes the projected columns of the record at base
// RID rb, at relative version relVer (0 = current, negative = that many
// updates back). found is false if the record is tombstoned. If relVer
// reaches further back than the record's history, the base row is
// returned (spec.md §4.6.3).
func (tb *Table) LocateRecord(rb rid.RID, projection []bool, relVer int) (values []int64, found bool, err error) {
	if len(projection) != tb.d {
		return nil, false, nil
	}
	indRaw, err := tb.readColumnByRID(colIndirection, rb)
	if err != nil {
		return nil, false, err
	}
	x := rid.RID(indRaw)
	if tb.codec.IsTombstone(x) {
		return nil, false, nil
	}

	result := make([]int64, tb.d)
	if x == rb {
		if err := tb.fillFromRID(result, projection, rb); err != nil {
			return nil, false, err
		}
		return result, true, nil
	}

	cur := x
	target := -relVer
	for hops := 0; hops < target; hops++ {
		nextRaw, err := tb.readColumnByRID(colIndirection, cur)
		if err != nil {
			return nil, false, err
		}
		next := rid.RID(nextRaw)
		if next == rb {
			if err := tb.fillFromRID(result, projection, rb); err != nil {
				return nil, false, err
			}
			return result, true, nil
		}
		cur = next
	}

	remaining := append([]bool(nil), projection...)
	walker := cur
	for {
		schemaRaw, err := tb.readColumnByRID(colSchema, walker)
		if err != nil {
			return nil, false, err
		}
		for i := 0; i < tb.d; i++ {
			if !remaining[i] || schemaRaw&(int64(1)<<uint(i)) == 0 {
				continue
			}
			v, err := tb.readColumnByRID(dataCol(i), walker)
			if err != nil {
				return nil, false, err
			}
			result[i] = v
			remaining[i] = false
		}
		if allClear(remaining) {
			break
		}
		nextRaw, err := tb.readColumnByRID(colIndirection, walker)
		if err != nil {
			return nil, false, err
		}
		next := rid.RID(nextRaw)
		if next == rb {
			break
		}
		walker = next
	}

	for i := 0; i < tb.d; i++ {
		if remaining[i] {
			v, err := tb.readColumnByRID(dataCol(i), rb)
			if err != nil {
				return nil, false, err
			}
			result[i] = v
		}
	}
	return result, true, nil
}

func (tb *Table) fillFromRID(result []int64, projection []bool, r rid.RID) error {
	for i := 0; i < tb.d; i++ {
		if !projection[i] {
			continue
		}
		v, err := tb.readColumnByRID(dataCol(i), r)
		if err != nil {
			return err
		}
		result[i] = v
	}
	return nil
}

func allClear(mask []bool) bool {
	for _, b := range mask {
		if b {
			return false
		}
	}
	return true
}

func fullMask(d int) []bool {
	m := make([]bool, d)
	for i := range m {
		m[i] = true
	}
	return m
}
