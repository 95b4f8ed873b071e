package engine

import (
	"github.com/lstorego/lstore/internal/index"
	"github.com/lstorego/lstore/internal/rid"
)

// Bootstrap restores a table's in-memory state after the process holding
// it exits and a new one reopens the same on-disk directory. Page cursors
// are recomputed from what's already on disk; hash-kind columns are
// restored from hashSnapshots (persisted JSON, keyed by column) where
// available, and every other indexed column is rebuilt by replaying the
// current value of every live record.
//
// Historical version chains inside a rebuilt B+-tree do not survive this:
// every re-inserted entry starts at abs_ver 0 with no prev/next links, so
// point_version queries older than rel_ver 0 against a rebuilt column
// return nothing until that column is updated again post-reopen. The
// underlying data does not lose history — LocateRecord's indirection walk
// is unaffected — only the index-level historical shortcut resets.
func (tb *Table) Bootstrap(hashSnapshots map[int]map[int64][]rid.RID) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if err := tb.restoreCursorsLocked(); err != nil {
		return err
	}

	for i := range tb.indexes {
		if snap, ok := hashSnapshots[i]; ok {
			tb.RestoreHash(i, snap)
			continue
		}
		if tb.indexKinds[i] == index.KindLinear {
			continue
		}
		if err := tb.rebuildColumnLocked(i); err != nil {
			return err
		}
	}
	return nil
}

func (tb *Table) restoreCursorsLocked() error {
	maxBase := tb.fm.MaxPageNumber(false)
	if maxBase < 0 {
		tb.currentBasePage, tb.baseOffset = 0, 0
	} else {
		p, err := tb.pd.Retrieve(colRID, false, maxBase)
		if err != nil {
			return err
		}
		tb.currentBasePage = maxBase
		if p != nil {
			tb.baseOffset = p.NumRecords()
		}
	}

	maxTail := tb.fm.MaxPageNumber(true)
	if maxTail < 0 {
		tb.currentTailPage, tb.tailOffset = 0, 0
	} else {
		p, err := tb.pd.Retrieve(colRID, true, maxTail)
		if err != nil {
			return err
		}
		tb.currentTailPage = maxTail
		if p != nil {
			tb.tailOffset = p.NumRecords()
		}
	}
	return nil
}

func (tb *Table) rebuildColumnLocked(col int) error {
	mask := make([]bool, tb.d)
	mask[col] = true

	for p := int64(0); p <= tb.currentBasePage; p++ {
		bp, err := tb.pd.Retrieve(colRID, false, p)
		if err != nil {
			return err
		}
		if bp == nil {
			continue
		}
		for o := 0; o < bp.NumRecords(); o++ {
			rb := tb.codec.MustPack(false, p, int64(o))
			indRaw, err := tb.readColumnByRID(colIndirection, rb)
			if err != nil {
				return err
			}
			if tb.codec.IsTombstone(rid.RID(indRaw)) {
				continue
			}
			vals, found, err := tb.LocateRecord(rb, mask, 0)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if err := tb.indexes[col].Insert(vals[col], rb); err != nil {
				return err
			}
		}
	}
	return nil
}
