package engine

import (
	"fmt"

	"github.com/lstorego/lstore/internal/page"
	"github.com/lstorego/lstore/internal/rid"
)

// Merge consolidates every (base_page#, column) pair touched since the
// last merge: each base page is rewritten with the current value of every
// live record, so future rel_ver=0 reads no longer need to walk tails.
// It is advisory — it never changes query semantics, only shortens the
// hot path — and is a no-op in delta mode, where reconstructing "current"
// requires the same chain walk LocateRecord already does, so there is
// nothing merge would save (spec.md §4.6.6).
func (tb *Table) Merge() error {
	tb.mu.Lock()
	touched := tb.mergeSet
	tb.mergeSet = make(map[mergeKey]bool)
	tb.updateCounter = 0
	cumulative := tb.cumulative
	tb.mu.Unlock()

	if !cumulative {
		return nil
	}

	for k := range touched {
		if err := tb.mergeColumnPage(k.page, k.col); err != nil {
			return fmt.Errorf("engine: merge page=%d col=%d: %w", k.page, k.col, err)
		}
	}
	return nil
}

func (tb *Table) mergeColumnPage(basePageNum int64, col int) error {
	basePage, err := tb.pd.Retrieve(col, false, basePageNum)
	if err != nil || basePage == nil {
		return err
	}
	indPage, err := tb.pd.Retrieve(colIndirection, false, basePageNum)
	if err != nil || indPage == nil {
		return err
	}

	consolidated := page.New(tb.pageSize, tb.recordSize)
	for o := 0; o < basePage.NumRecords(); o++ {
		indRaw, err := indPage.ReadInt64At(o)
		if err != nil {
			return err
		}
		indRID := rid.RID(indRaw)
		baseRID := tb.codec.MustPack(false, basePageNum, int64(o))

		var v int64
		switch {
		case tb.codec.IsTombstone(indRID), indRID == baseRID:
			v, err = basePage.ReadInt64At(o)
		default:
			v, err = tb.readColumnByRID(col, indRID)
		}
		if err != nil {
			return err
		}
		if _, err := consolidated.Append(int64Bytes(v)); err != nil {
			return err
		}
	}
	return tb.pd.Swap(col, false, basePageNum, consolidated)
}
