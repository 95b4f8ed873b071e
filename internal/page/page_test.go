package page

import (
	"encoding/binary"
	"testing"
)

func int64Bytes(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func TestPageAppendAndCapacity(t *testing.T) {
	p := New(64, 8) // capacity 8
	if p.Capacity() != 8 {
		t.Fatalf("Capacity() = %d, want 8", p.Capacity())
	}
	for i := 0; i < 8; i++ {
		if !p.HasCapacity() {
			t.Fatalf("expected capacity at i=%d", i)
		}
		off, err := p.Append(int64Bytes(int64(i)))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if off != i {
			t.Fatalf("Append offset = %d, want %d", off, i)
		}
	}
	if p.HasCapacity() {
		t.Fatalf("page should be full")
	}
	if _, err := p.Append(int64Bytes(99)); err != ErrPageFull {
		t.Fatalf("expected ErrPageFull, got %v", err)
	}
	if !p.Dirty {
		t.Fatalf("page should be dirty after append")
	}
}

func TestPageOverwriteAndRead(t *testing.T) {
	p := New(64, 8)
	p.Append(int64Bytes(10))
	p.Append(int64Bytes(20))

	if err := p.OverwriteAt(1, int64Bytes(99)); err != nil {
		t.Fatalf("OverwriteAt: %v", err)
	}
	v, err := p.ReadInt64At(1)
	if err != nil {
		t.Fatalf("ReadInt64At: %v", err)
	}
	if v != 99 {
		t.Fatalf("value = %d, want 99", v)
	}

	if err := p.OverwriteAt(5, int64Bytes(1)); err != ErrOffsetOutOfRange {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if _, err := p.ReadAt(5); err != ErrOffsetOutOfRange {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestFileManagerStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, 8)

	p := New(4096, 8)
	for i := 0; i < 5; i++ {
		p.Append(int64Bytes(int64(i * 7)))
	}

	if err := fm.Store(2, false, 0, p); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if p.Dirty {
		t.Fatalf("Store should clear dirty flag")
	}

	loaded, err := fm.Load(2, false, 0, 4096)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatalf("Load returned nil for a stored page")
	}
	if loaded.NumRecords() != 5 {
		t.Fatalf("NumRecords() = %d, want 5", loaded.NumRecords())
	}
	for i := 0; i < 5; i++ {
		v, err := loaded.ReadInt64At(i)
		if err != nil {
			t.Fatalf("ReadInt64At(%d): %v", i, err)
		}
		if v != int64(i*7) {
			t.Fatalf("value at %d = %d, want %d", i, v, i*7)
		}
	}
}

func TestFileManagerLoadMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, 8)
	p, err := fm.Load(0, false, 0, 4096)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil page for missing file")
	}
}

func TestFileManagerMaxPageNumber(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, 8)
	if n := fm.MaxPageNumber(false); n != -1 {
		t.Fatalf("MaxPageNumber on empty table = %d, want -1", n)
	}

	p := New(4096, 8)
	fm.Store(0, false, 0, p)
	fm.Store(0, false, 1, p)
	fm.Store(0, false, 3, p)

	if n := fm.MaxPageNumber(false); n != 3 {
		t.Fatalf("MaxPageNumber() = %d, want 3", n)
	}
	if n := fm.MaxPageNumber(true); n != -1 {
		t.Fatalf("MaxPageNumber(tail) = %d, want -1", n)
	}
}

func TestDeleteTableFiles(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, 8)
	p := New(4096, 8)
	fm.Store(0, false, 0, p)

	if err := fm.DeleteTableFiles(); err != nil {
		t.Fatalf("DeleteTableFiles: %v", err)
	}
	if _, err := fm.Load(0, false, 0, 4096); err != nil {
		t.Fatalf("Load after delete should not error: %v", err)
	}
}
