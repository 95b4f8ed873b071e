package index

import (
	"sync"

	"github.com/lstorego/lstore/internal/rid"
)

// Hash is an unordered secondary index: a value -> []RID forward map plus
// a RID -> value reverse map that Update consults for a RID's prior
// bucket, so a stale prevValue from the caller is corrected. It only ever tracks each RID's
// current value (spec.md §4.5.2) — it cannot answer historical queries,
// so PointVersion defers to the caller's linear-scan fallback for anything
// but the current version.
type Hash struct {
	mu      sync.RWMutex
	forward map[int64][]rid.RID
	reverse map[rid.RID]int64
}

// NewHash creates an empty hashtable index.
func NewHash() *Hash {
	return &Hash{
		forward: make(map[int64][]rid.RID),
		reverse: make(map[rid.RID]int64),
	}
}

func (h *Hash) Insert(value int64, r rid.RID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forward[value] = append(h.forward[value], r)
	h.reverse[r] = value
	return nil
}

func (h *Hash) Update(prevValue int64, r rid.RID, newValue int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.reverse[r]; ok {
		prevValue = cur
	}
	if prevValue == newValue {
		return nil
	}
	h.removeLocked(prevValue, r)
	h.forward[newValue] = append(h.forward[newValue], r)
	h.reverse[r] = newValue
	return nil
}

func (h *Hash) Delete(value int64, r rid.RID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(value, r)
	delete(h.reverse, r)
	return nil
}

func (h *Hash) removeLocked(value int64, r rid.RID) {
	bucket := h.forward[value]
	for i, cand := range bucket {
		if cand == r {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(h.forward, value)
	} else {
		h.forward[value] = bucket
	}
}

func (h *Hash) Point(value int64) ([]rid.RID, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]rid.RID, len(h.forward[value]))
	copy(out, h.forward[value])
	return out, nil
}

// Range scans every bucket in [lo, hi]; the hashtable index has no natural
// order, so this is O(n) over the index's distinct values rather than the
// B+-tree's O(log n + k).
func (h *Hash) Range(lo, hi int64) ([]rid.RID, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []rid.RID
	for v, rids := range h.forward {
		if v >= lo && v <= hi {
			out = append(out, rids...)
		}
	}
	return out, nil
}

// PointVersion only serves rel_ver 0 (the current value); anything older
// is ErrVersionUnsupported, telling the table to fall back to a linear
// scan (spec.md §4.5.3).
func (h *Hash) PointVersion(value int64, relVer int) ([]rid.RID, error) {
	if relVer != 0 {
		return nil, ErrVersionUnsupported
	}
	return h.Point(value)
}

// Snapshot returns the forward map contents for persistence (hashmap_index.json).
func (h *Hash) Snapshot() map[int64][]rid.RID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[int64][]rid.RID, len(h.forward))
	for k, v := range h.forward {
		cp := make([]rid.RID, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Restore rebuilds both maps from a persisted forward map (hashmap_index.json).
func (h *Hash) Restore(forward map[int64][]rid.RID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forward = make(map[int64][]rid.RID, len(forward))
	h.reverse = make(map[rid.RID]int64, len(forward))
	for v, rids := range forward {
		cp := make([]rid.RID, len(rids))
		copy(cp, rids)
		h.forward[v] = cp
		for _, r := range rids {
			h.reverse[r] = v
		}
	}
}
