package rid

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		pageSize   int
		recordSize int
	}{
		{"4096/8", 4096, 8},
		{"4096/4", 4096, 4},
		{"512/8", 512, 8},
		{"65536/8", 65536, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewCodec(tc.pageSize, tc.recordSize)
			if err != nil {
				t.Fatalf("NewCodec: %v", err)
			}

			pages := []int64{0, 1, c.MaxPage()}
			offsets := []int64{0, 1, c.MaxOffset()}
			for _, isTail := range []bool{false, true} {
				for _, p := range pages {
					for _, o := range offsets {
						r, err := c.Pack(isTail, p, o)
						if err != nil {
							t.Fatalf("Pack(%v,%d,%d): %v", isTail, p, o, err)
						}
						gotTail, gotPage, gotOff := c.Unpack(r)
						if gotTail != isTail || gotPage != p || gotOff != o {
							t.Fatalf("round trip mismatch: got (%v,%d,%d) want (%v,%d,%d)",
								gotTail, gotPage, gotOff, isTail, p, o)
						}
					}
				}
			}
		})
	}
}

func TestCodecOutOfRange(t *testing.T) {
	c, err := NewCodec(4096, 8)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := c.Pack(false, c.MaxPage()+1, 0); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange for page overflow, got %v", err)
	}
	if _, err := c.Pack(false, 0, c.MaxOffset()+1); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange for offset overflow, got %v", err)
	}
	if _, err := c.Pack(false, -1, 0); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange for negative page, got %v", err)
	}
}

func TestTombstoneDistinctFromTailSpace(t *testing.T) {
	c, err := NewCodec(4096, 8)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tomb := c.Tombstone()
	isTail, _, _ := c.Unpack(tomb)
	if isTail {
		t.Fatalf("tombstone must live in the non-tail half-space")
	}
	if !c.IsTombstone(tomb) {
		t.Fatalf("IsTombstone must recognize its own tombstone value")
	}
	ordinary, _ := c.Pack(false, 1, 2)
	if c.IsTombstone(ordinary) {
		t.Fatalf("ordinary base RID misidentified as tombstone")
	}
}

func TestOffsetBitsDerivedPerCodec(t *testing.T) {
	small, _ := NewCodec(64, 8) // capacity 8 -> 3 offset bits
	if small.OffsetBits() != 3 {
		t.Fatalf("OffsetBits() = %d, want 3", small.OffsetBits())
	}
	big, _ := NewCodec(4096, 8) // capacity 512 -> 9 offset bits
	if big.OffsetBits() != 9 {
		t.Fatalf("OffsetBits() = %d, want 9", big.OffsetBits())
	}
}
