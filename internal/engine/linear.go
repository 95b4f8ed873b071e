package engine

import (
	"github.com/lstorego/lstore/internal/index"
	"github.com/lstorego/lstore/internal/rid"
)

// newLinearIndex builds the "DumbIndex" fallback for data column col: it
// holds no structure of its own and scans every base page, resolving each
// live record's value at the requested relative version via LocateRecord.
func (tb *Table) newLinearIndex(col int) *index.Linear {
	mask := func() []bool {
		m := make([]bool, tb.d)
		m[col] = true
		return m
	}

	scan := func(value int64, relVer int) ([]rid.RID, error) {
		var out []rid.RID
		m := mask()
		for p := int64(0); p <= tb.currentBasePage; p++ {
			bp, err := tb.pd.Retrieve(dataCol(col), false, p)
			if err != nil {
				return nil, err
			}
			if bp == nil {
				continue
			}
			for o := 0; o < bp.NumRecords(); o++ {
				rb := tb.codec.MustPack(false, p, int64(o))
				vals, found, err := tb.LocateRecord(rb, m, relVer)
				if err != nil {
					return nil, err
				}
				if found && vals[col] == value {
					out = append(out, rb)
				}
			}
		}
		return out, nil
	}

	scanRange := func(lo, hi int64) ([]rid.RID, error) {
		var out []rid.RID
		m := mask()
		for p := int64(0); p <= tb.currentBasePage; p++ {
			bp, err := tb.pd.Retrieve(dataCol(col), false, p)
			if err != nil {
				return nil, err
			}
			if bp == nil {
				continue
			}
			for o := 0; o < bp.NumRecords(); o++ {
				rb := tb.codec.MustPack(false, p, int64(o))
				vals, found, err := tb.LocateRecord(rb, m, 0)
				if err != nil {
					return nil, err
				}
				if found && vals[col] >= lo && vals[col] <= hi {
					out = append(out, rb)
				}
			}
		}
		return out, nil
	}

	return index.NewLinear(scan, scanRange)
}
