package engine

import (
	"github.com/lstorego/lstore/internal/index"
	"github.com/lstorego/lstore/internal/rid"
)

// IndexPoint exposes the point query of an arbitrary column's index — used
// by the query layer's select/select_version, which may key off any
// indexed column, not only the primary key.
func (tb *Table) IndexPoint(col int, value int64) ([]rid.RID, error) {
	return tb.indexes[col].Point(value)
}

// IndexPointVersion answers a point_version query on column col, falling
// back to a one-off linear scan when the column's own index variant
// (typically hash) can't serve relVer itself.
func (tb *Table) IndexPointVersion(col int, value int64, relVer int) ([]rid.RID, error) {
	rids, err := tb.indexes[col].PointVersion(value, relVer)
	if err == index.ErrVersionUnsupported {
		return tb.newLinearIndex(col).PointVersion(value, relVer)
	}
	return rids, err
}

// ColumnValue reads data column col (0-based among the D user columns) of
// record r directly, without any version walk.
func (tb *Table) ColumnValue(col int, r rid.RID) (int64, error) {
	return tb.readColumnByRID(dataCol(col), r)
}
