package index

import (
	"testing"

	"github.com/lstorego/lstore/internal/rid"
)

func mkrid(t *testing.T, n int64) rid.RID {
	t.Helper()
	c, err := rid.NewCodec(4096, 8)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	r, err := c.Pack(false, 0, n)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return r
}

func TestBTreeInsertAndPoint(t *testing.T) {
	bt := NewBTree(4)
	r1 := mkrid(t, 1)
	r2 := mkrid(t, 2)
	if err := bt.Insert(10, r1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := bt.Insert(20, r2); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := bt.Point(10)
	if err != nil || len(got) != 1 || got[0] != r1 {
		t.Fatalf("Point(10) = %v, %v", got, err)
	}
}

func TestBTreeUpdateMovesRID(t *testing.T) {
	bt := NewBTree(4)
	r := mkrid(t, 1)
	bt.Insert(10, r)

	if err := bt.Update(10, r, 20); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, _ := bt.Point(10); len(got) != 0 {
		t.Fatalf("Point(10) after update = %v, want empty", got)
	}
	got, err := bt.Point(20)
	if err != nil || len(got) != 1 || got[0] != r {
		t.Fatalf("Point(20) = %v, %v", got, err)
	}
}

func TestBTreePointVersionWalksChain(t *testing.T) {
	bt := NewBTree(4)
	r := mkrid(t, 1)
	bt.Insert(10, r)
	bt.Update(10, r, 20)
	bt.Update(20, r, 30)

	cur, err := bt.PointVersion(30, 0)
	if err != nil || len(cur) != 1 {
		t.Fatalf("PointVersion(30, 0) = %v, %v", cur, err)
	}
	one, err := bt.PointVersion(20, -1)
	if err != nil || len(one) != 1 || one[0] != r {
		t.Fatalf("PointVersion(20, -1) = %v, %v", one, err)
	}
	two, err := bt.PointVersion(10, -2)
	if err != nil || len(two) != 1 || two[0] != r {
		t.Fatalf("PointVersion(10, -2) = %v, %v", two, err)
	}
	// Wrong relative version at a key should not match.
	none, _ := bt.PointVersion(10, 0)
	if len(none) != 0 {
		t.Fatalf("PointVersion(10, 0) = %v, want empty (10 isn't current)", none)
	}
}

func TestBTreeDeleteRemovesWholeChain(t *testing.T) {
	bt := NewBTree(4)
	r := mkrid(t, 1)
	bt.Insert(10, r)
	bt.Update(10, r, 20)
	bt.Update(20, r, 30)

	if err := bt.Delete(30, r); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, v := range []int64{10, 20, 30} {
		got, _ := bt.Point(v)
		if len(got) != 0 {
			t.Fatalf("Point(%d) after delete = %v, want empty", v, got)
		}
	}
}

func TestBTreeRangeAcrossSplitLeaves(t *testing.T) {
	bt := NewBTree(3) // maxKeys=2, forces splits quickly
	var rids []rid.RID
	for i := int64(0); i < 20; i++ {
		r := mkrid(t, i)
		rids = append(rids, r)
		if err := bt.Insert(i*10, r); err != nil {
			t.Fatalf("Insert(%d): %v", i*10, err)
		}
	}
	got, err := bt.Range(50, 120)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := map[rid.RID]bool{}
	for i := int64(5); i <= 12; i++ {
		want[rids[i]] = true
	}
	if len(got) != len(want) {
		t.Fatalf("Range(50,120) len = %d, want %d (%v)", len(got), len(want), got)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("Range(50,120) returned unexpected rid %v", g)
		}
	}
}

func TestHashInsertUpdateDeletePoint(t *testing.T) {
	h := NewHash()
	r := mkrid(t, 1)
	h.Insert(10, r)
	if got, _ := h.Point(10); len(got) != 1 || got[0] != r {
		t.Fatalf("Point(10) = %v", got)
	}
	h.Update(10, r, 20)
	if got, _ := h.Point(10); len(got) != 0 {
		t.Fatalf("Point(10) after update = %v, want empty", got)
	}
	if got, _ := h.Point(20); len(got) != 1 || got[0] != r {
		t.Fatalf("Point(20) = %v", got)
	}
	h.Delete(20, r)
	if got, _ := h.Point(20); len(got) != 0 {
		t.Fatalf("Point(20) after delete = %v, want empty", got)
	}
}

func TestHashPointVersionUnsupportedForHistory(t *testing.T) {
	h := NewHash()
	r := mkrid(t, 1)
	h.Insert(10, r)
	if _, err := h.PointVersion(10, -1); err != ErrVersionUnsupported {
		t.Fatalf("PointVersion(-1) err = %v, want ErrVersionUnsupported", err)
	}
	if got, err := h.PointVersion(10, 0); err != nil || len(got) != 1 {
		t.Fatalf("PointVersion(0) = %v, %v", got, err)
	}
}

func TestHashSnapshotRestore(t *testing.T) {
	h := NewHash()
	r1 := mkrid(t, 1)
	r2 := mkrid(t, 2)
	h.Insert(10, r1)
	h.Insert(10, r2)

	snap := h.Snapshot()
	h2 := NewHash()
	h2.Restore(snap)

	got, _ := h2.Point(10)
	if len(got) != 2 {
		t.Fatalf("Restore Point(10) = %v, want 2 entries", got)
	}
	if err := h2.Delete(10, r1); err != nil {
		t.Fatalf("Delete after restore: %v", err)
	}
	if got, _ := h2.Point(10); len(got) != 1 || got[0] != r2 {
		t.Fatalf("Point(10) after delete = %v", got)
	}
}

func TestLinearDelegatesToScanners(t *testing.T) {
	r := mkrid(t, 1)
	calledPoint := false
	calledRange := false
	l := NewLinear(
		func(value int64, relVer int) ([]rid.RID, error) {
			calledPoint = true
			if value == 10 && relVer == -1 {
				return []rid.RID{r}, nil
			}
			return nil, nil
		},
		func(lo, hi int64) ([]rid.RID, error) {
			calledRange = true
			return []rid.RID{r}, nil
		},
	)

	if err := l.Insert(10, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := l.PointVersion(10, -1)
	if err != nil || len(got) != 1 || got[0] != r || !calledPoint {
		t.Fatalf("PointVersion = %v, %v, calledPoint=%v", got, err, calledPoint)
	}
	if _, err := l.Range(0, 100); err != nil || !calledRange {
		t.Fatalf("Range err=%v calledRange=%v", err, calledRange)
	}
}
