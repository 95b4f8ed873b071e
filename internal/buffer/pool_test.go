package buffer

import (
	"testing"

	"github.com/lstorego/lstore/internal/page"
)

func newTestDirectory(t *testing.T, capacity int) (*Directory, *page.FileManager) {
	t.Helper()
	dir := t.TempDir()
	fm := page.NewFileManager(dir, 8)
	var clockVal int64
	clock := func() int64 {
		clockVal++
		return clockVal
	}
	return New(fm, 64, capacity, clock), fm
}

func TestDirectoryInsertAndRetrieve(t *testing.T) {
	d, _ := newTestDirectory(t, 2)

	p := page.New(64, 8)
	p.Append(make([]byte, 8))
	if err := d.Insert(0, false, 0, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := d.Retrieve(0, false, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got == nil {
		t.Fatalf("Retrieve returned nil for inserted page")
	}
	if got.NumRecords() != 1 {
		t.Fatalf("NumRecords() = %d, want 1", got.NumRecords())
	}
}

func TestDirectoryRetrieveMissing(t *testing.T) {
	d, _ := newTestDirectory(t, 2)
	got, err := d.Retrieve(0, false, 99)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for never-created page")
	}
}

func TestDirectoryEvictsLRUAndWritesBackDirty(t *testing.T) {
	d, fm := newTestDirectory(t, 1)

	p0 := page.New(64, 8)
	p0.Append(make([]byte, 8))
	if err := d.Insert(0, false, 0, p0); err != nil {
		t.Fatalf("Insert p0: %v", err)
	}
	// Mutate p0 in place and mark dirty without going through Insert/Swap,
	// to simulate an update touching a cached page directly.
	p0.OverwriteAt(0, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	p1 := page.New(64, 8)
	p1.Append(make([]byte, 8))
	if err := d.Insert(1, false, 0, p1); err != nil {
		t.Fatalf("Insert p1: %v", err)
	}

	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (capacity 1 should have evicted p0)", d.Len())
	}

	// p0 must have been written back to disk before eviction.
	reloaded, err := fm.Load(0, false, 0, 64)
	if err != nil {
		t.Fatalf("Load p0: %v", err)
	}
	if reloaded == nil {
		t.Fatalf("p0 missing from disk after eviction")
	}
	v, _ := reloaded.ReadAt(0)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	for i := range want {
		if v[i] != want[i] {
			t.Fatalf("evicted page write-back mismatch at %d: got %v want %v", i, v, want)
		}
	}
}

func TestDirectorySwap(t *testing.T) {
	d, _ := newTestDirectory(t, 2)
	p := page.New(64, 8)
	p.Append(make([]byte, 8))
	d.Insert(0, false, 0, p)

	consolidated := page.New(64, 8)
	consolidated.Append([]byte{9, 9, 9, 9, 9, 9, 9, 9})
	if err := d.Swap(0, false, 0, consolidated); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	got, err := d.Retrieve(0, false, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	v, _ := got.ReadAt(0)
	if v[0] != 9 {
		t.Fatalf("Swap did not take effect, got %v", v)
	}
}

func TestDirectorySaveAll(t *testing.T) {
	d, fm := newTestDirectory(t, 4)
	p := page.New(64, 8)
	p.Append(make([]byte, 8))
	d.Insert(0, false, 0, p)
	p.OverwriteAt(0, []byte{7, 7, 7, 7, 7, 7, 7, 7})

	if err := d.SaveAll(); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	reloaded, _ := fm.Load(0, false, 0, 64)
	v, _ := reloaded.ReadAt(0)
	if v[0] != 7 {
		t.Fatalf("SaveAll did not flush dirty page")
	}
}
