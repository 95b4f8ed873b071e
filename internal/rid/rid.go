// Package rid implements the bit-packed Record Identifier scheme used to
// address base and tail records inside a table's page files.
//
// What: pack/unpack a (is_tail, page#, offset) triple into a single signed
// integer of width W = 8*record_size.
// How: the tail bit occupies the high bit, the page number the next
// page_bits bits, and the offset the low offset_bits bits — all derived
// from a table's page_size/record_size, never assumed global.
// Why: RIDs double as both a storage location and a stable external key;
// packing them keeps index entries and indirection pointers a single int.
package rid

import (
	"fmt"
	"math/bits"
)

// RID is a packed record identifier. Its bit layout depends on the Codec
// that produced it; RIDs from different codecs must never be mixed.
type RID int64

// ErrOutOfRange is returned by Codec.Pack when a page or offset value does
// not fit in the codec's configured bit widths. Packing is a programmer
// contract, not a user-facing operation, so callers are expected to treat
// this as a bug, not a recoverable condition.
var ErrOutOfRange = fmt.Errorf("rid: page or offset out of range")

// Codec packs and unpacks RIDs for one table's page geometry.
// Layout, high to low: tail_bit(1) | page_number(W-1-offset_bits) | offset(offset_bits).
type Codec struct {
	width      int // total bits, W = 8*record_size
	offsetBits int
	pageBits   int // W - 1 - offsetBits
}

// NewCodec derives a Codec from a table's page_size and record_size, both
// in bytes. record_size must be a power of two dividing page_size evenly;
// page_size must be a multiple of record_size, and the resulting width
// must be large enough to hold at least one offset bit.
func NewCodec(pageSize, recordSize int) (Codec, error) {
	if recordSize <= 0 || pageSize <= 0 {
		return Codec{}, fmt.Errorf("rid: page_size and record_size must be positive")
	}
	if pageSize%recordSize != 0 {
		return Codec{}, fmt.Errorf("rid: page_size %d not a multiple of record_size %d", pageSize, recordSize)
	}
	capacity := pageSize / recordSize
	offsetBits := bits.Len(uint(capacity - 1))
	if offsetBits == 0 {
		offsetBits = 1
	}
	width := 8 * recordSize
	pageBits := width - 1 - offsetBits
	if pageBits <= 0 {
		return Codec{}, fmt.Errorf("rid: record_size %d too small for page_size %d", recordSize, pageSize)
	}
	return Codec{width: width, offsetBits: offsetBits, pageBits: pageBits}, nil
}

// OffsetBits returns log2(page_size/record_size), the number of low bits
// reserved for the in-page offset.
func (c Codec) OffsetBits() int { return c.offsetBits }

// MaxPage returns the largest page number the codec can address.
func (c Codec) MaxPage() int64 { return int64(1)<<uint(c.pageBits) - 1 }

// MaxOffset returns the largest offset the codec can address.
func (c Codec) MaxOffset() int64 { return int64(1)<<uint(c.offsetBits) - 1 }

// Tombstone is the reserved RID stored in INDIRECTION to mark a deleted
// base record: the all-ones payload in the non-tail half-space.
func (c Codec) Tombstone() RID {
	payload := int64(1)<<uint(c.width-1) - 1
	return RID(payload)
}

// Pack encodes (isTail, page, offset) into a RID. page and offset out of
// the codec's configured range is a programmer error (ErrOutOfRange).
func (c Codec) Pack(isTail bool, page, offset int64) (RID, error) {
	if page < 0 || page > c.MaxPage() {
		return 0, ErrOutOfRange
	}
	if offset < 0 || offset > c.MaxOffset() {
		return 0, ErrOutOfRange
	}
	var v int64
	if isTail {
		v |= int64(1) << uint(c.width-1)
	}
	v |= page << uint(c.offsetBits)
	v |= offset
	return RID(v), nil
}

// MustPack panics instead of returning an error; for call sites where the
// inputs are already known-valid (e.g. values just read back from Unpack).
func (c Codec) MustPack(isTail bool, page, offset int64) RID {
	r, err := c.Pack(isTail, page, offset)
	if err != nil {
		panic(err)
	}
	return r
}

// Unpack decodes a RID into (isTail, page, offset).
func (c Codec) Unpack(r RID) (isTail bool, page, offset int64) {
	v := int64(r)
	isTail = v>>uint(c.width-1)&1 == 1
	offsetMask := int64(1)<<uint(c.offsetBits) - 1
	offset = v & offsetMask
	page = (v >> uint(c.offsetBits)) & (int64(1)<<uint(c.pageBits) - 1)
	return isTail, page, offset
}

// IsTombstone reports whether r is this codec's reserved tombstone RID.
func (c Codec) IsTombstone(r RID) bool {
	return r == c.Tombstone()
}
