package index

import (
	"sort"
	"sync"

	"github.com/lstorego/lstore/internal/rid"
)

// treeEntry is one (value, RID) occurrence in the versioned B+-tree. A
// single RID accumulates one treeEntry per distinct column value it has
// ever held; PrevVerKey/NextVerKey link those occurrences into a chain
// ordered oldest to newest, mirroring the indirection chain the table
// engine keeps for tail records (spec.md §4.2, §4.5.1).
type treeEntry struct {
	Rid        rid.RID
	AbsVer     int
	PrevVerKey *int64
	NextVerKey *int64
}

// node is one B+-tree node living in BTree.nodes. Leaves carry entries
// per key; internal nodes carry child node ids. Nodes are never moved once
// allocated, so ids (indices into nodes) are stable references — the node
// arena the design notes call for instead of owning cross-pointers.
type node struct {
	leaf bool

	keys     []int64
	entries  [][]treeEntry // parallel to keys, leaf only
	children []int         // len(children) == len(keys)+1, internal only

	next int // leaf sibling, -1 if none
	prev int // leaf sibling, -1 if none
}

// BTree is an ordered, versioned secondary index. Fan-out (both leaf and
// internal) is capped at maxKeys = maxDegree-1, matching the invariant
// spec.md states for this index kind.
type BTree struct {
	mu       sync.RWMutex
	nodes    []node
	root     int
	maxKeys  int
	firstLeaf int
}

// NewBTree creates an empty tree with the given max degree (must be >= 3).
func NewBTree(maxDegree int) *BTree {
	if maxDegree < 3 {
		maxDegree = 3
	}
	t := &BTree{maxKeys: maxDegree - 1}
	t.nodes = append(t.nodes, node{leaf: true, next: -1, prev: -1})
	t.root = 0
	t.firstLeaf = 0
	return t
}

// findLeaf returns the path of node ids from root to the leaf that would
// hold key, root first, leaf last.
func (t *BTree) findLeaf(key int64) []int {
	path := []int{t.root}
	cur := t.root
	for !t.nodes[cur].leaf {
		n := &t.nodes[cur]
		i := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
		cur = n.children[i]
		path = append(path, cur)
	}
	return path
}

// Insert adds a fresh (value, r) occurrence with AbsVer 0 and no version
// links — the state of a newly inserted record before any update.
func (t *BTree) Insert(value int64, r rid.RID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertEntry(value, treeEntry{Rid: r, AbsVer: 0})
	return nil
}

// Update locates the live occurrence of r at prevValue (the one with no
// NextVerKey), links it forward to newValue, and inserts the new occurrence
// one version newer. A no-op if prevValue == newValue.
func (t *BTree) Update(prevValue int64, r rid.RID, newValue int64) error {
	if prevValue == newValue {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.findLeaf(prevValue)
	leafID := path[len(path)-1]
	n := &t.nodes[leafID]
	ki := sort.SearchInts(keysAsInts(n.keys), intKey(prevValue))
	if ki >= len(n.keys) || n.keys[ki] != prevValue {
		return ErrKeyNotFound
	}
	ei := -1
	for i := range n.entries[ki] {
		e := &n.entries[ki][i]
		if e.Rid == r && e.NextVerKey == nil {
			ei = i
			break
		}
	}
	if ei == -1 {
		return ErrKeyNotFound
	}
	nv := newValue
	n.entries[ki][ei].NextVerKey = &nv
	newAbs := n.entries[ki][ei].AbsVer + 1
	pv := prevValue
	t.insertEntry(newValue, treeEntry{Rid: r, AbsVer: newAbs, PrevVerKey: &pv})
	return nil
}

// Delete removes every historical occurrence of r reachable from value by
// walking PrevVerKey back to the original insert.
func (t *BTree) Delete(value int64, r rid.RID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := value
	wantNext := (*int64)(nil)
	first := true
	for {
		path := t.findLeaf(cur)
		leafID := path[len(path)-1]
		n := &t.nodes[leafID]
		ki := sort.SearchInts(keysAsInts(n.keys), intKey(cur))
		if ki >= len(n.keys) || n.keys[ki] != cur {
			return ErrKeyNotFound
		}
		idx := -1
		for i, e := range n.entries[ki] {
			if e.Rid != r {
				continue
			}
			if first && e.NextVerKey == nil {
				idx = i
				break
			}
			if !first && wantNext != nil && e.NextVerKey != nil && *e.NextVerKey == *wantNext {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrKeyNotFound
		}
		entry := n.entries[ki][idx]
		n.entries[ki] = append(n.entries[ki][:idx], n.entries[ki][idx+1:]...)

		prev := entry.PrevVerKey
		if prev == nil {
			return nil
		}
		removedKey := cur
		wantNext = &removedKey
		cur = *prev
		first = false
	}
}

// Point returns the RIDs whose live (most current) occurrence sits at value.
func (t *BTree) Point(value int64) ([]rid.RID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pointLocked(value), nil
}

func (t *BTree) pointLocked(value int64) []rid.RID {
	path := t.findLeaf(value)
	n := &t.nodes[path[len(path)-1]]
	ki := sort.SearchInts(keysAsInts(n.keys), intKey(value))
	if ki >= len(n.keys) || n.keys[ki] != value {
		return nil
	}
	var out []rid.RID
	for _, e := range n.entries[ki] {
		if e.NextVerKey == nil {
			out = append(out, e.Rid)
		}
	}
	return out
}

// Range returns the RIDs whose live occurrence falls in [lo, hi], walking
// the leaf linked list from the leaf containing lo.
func (t *BTree) Range(lo, hi int64) ([]rid.RID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path := t.findLeaf(lo)
	leafID := path[len(path)-1]
	var out []rid.RID
	for leafID != -1 {
		n := &t.nodes[leafID]
		for i, k := range n.keys {
			if k < lo {
				continue
			}
			if k > hi {
				return out, nil
			}
			for _, e := range n.entries[i] {
				if e.NextVerKey == nil {
					out = append(out, e.Rid)
				}
			}
		}
		leafID = n.next
	}
	return out, nil
}

// PointVersion returns the RIDs at value whose relative version (0 =
// current, -1 = one update older, ...) equals relVer, by walking each
// candidate occurrence's NextVerKey chain forward and counting hops.
func (t *BTree) PointVersion(value int64, relVer int) ([]rid.RID, error) {
	if relVer > 0 {
		return nil, ErrVersionUnsupported
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	path := t.findLeaf(value)
	n := &t.nodes[path[len(path)-1]]
	ki := sort.SearchInts(keysAsInts(n.keys), intKey(value))
	if ki >= len(n.keys) || n.keys[ki] != value {
		return nil, nil
	}
	var out []rid.RID
	for _, e := range n.entries[ki] {
		hops, ok := t.hopsToCurrent(value, e)
		if ok && -hops == relVer {
			out = append(out, e.Rid)
		}
	}
	return out, nil
}

// hopsToCurrent counts how many forward version links separate entry e
// (located at key startKey) from the newest occurrence of e.Rid.
func (t *BTree) hopsToCurrent(startKey int64, e treeEntry) (int, bool) {
	hops := 0
	curKey := startKey
	curEntry := e
	for curEntry.NextVerKey != nil {
		nextKey := *curEntry.NextVerKey
		path := t.findLeaf(nextKey)
		n := &t.nodes[path[len(path)-1]]
		ki := sort.SearchInts(keysAsInts(n.keys), intKey(nextKey))
		if ki >= len(n.keys) || n.keys[ki] != nextKey {
			return 0, false
		}
		found := false
		for _, cand := range n.entries[ki] {
			if cand.Rid == curEntry.Rid && cand.PrevVerKey != nil && *cand.PrevVerKey == curKey {
				curEntry = cand
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
		curKey = nextKey
		hops++
	}
	return hops, true
}

// insertEntry places e under key, creating the key if absent, splitting
// leaves/internal nodes bottom-up on overflow. Caller holds t.mu.
func (t *BTree) insertEntry(key int64, e treeEntry) {
	path := t.findLeaf(key)
	leafID := path[len(path)-1]
	n := &t.nodes[leafID]

	ki := sort.SearchInts(keysAsInts(n.keys), intKey(key))
	if ki < len(n.keys) && n.keys[ki] == key {
		n.entries[ki] = append(n.entries[ki], e)
		return
	}

	n.keys = insertIntAt(n.keys, ki, key)
	n.entries = insertEntriesAt(n.entries, ki, []treeEntry{e})

	if len(n.keys) <= t.maxKeys {
		return
	}
	t.splitLeaf(path)
}

// splitLeaf splits an overflowing leaf in half, promoting the right half's
// first key to the parent (creating a new root if the leaf was the root).
func (t *BTree) splitLeaf(path []int) {
	leafID := path[len(path)-1]
	n := t.nodes[leafID]

	mid := len(n.keys) / 2
	rightKeys := append([]int64(nil), n.keys[mid:]...)
	rightEntries := append([][]treeEntry(nil), n.entries[mid:]...)

	t.nodes[leafID].keys = n.keys[:mid]
	t.nodes[leafID].entries = n.entries[:mid]

	rightID := len(t.nodes)
	t.nodes = append(t.nodes, node{
		leaf:    true,
		keys:    rightKeys,
		entries: rightEntries,
		next:    n.next,
		prev:    leafID,
	})
	if n.next != -1 {
		t.nodes[n.next].prev = rightID
	}
	t.nodes[leafID].next = rightID

	separator := rightKeys[0]
	t.insertIntoParent(path[:len(path)-1], leafID, separator, rightID)
}

// insertIntoParent inserts (separator, rightChild) into the parent of
// leftChild (identified as the last id in parentPath), splitting the
// parent on overflow and recursing, or creating a new root if leftChild
// had no parent.
func (t *BTree) insertIntoParent(parentPath []int, leftChild int, separator int64, rightChild int) {
	if len(parentPath) == 0 {
		newRoot := node{
			leaf:     false,
			keys:     []int64{separator},
			children: []int{leftChild, rightChild},
		}
		t.root = len(t.nodes)
		t.nodes = append(t.nodes, newRoot)
		return
	}

	parentID := parentPath[len(parentPath)-1]
	p := &t.nodes[parentID]
	ci := sort.Search(len(p.keys), func(i int) bool { return separator < p.keys[i] })
	p.keys = insertIntAt(p.keys, ci, separator)
	p.children = insertIntAtSlice(p.children, ci+1, rightChild)

	if len(p.keys) <= t.maxKeys {
		return
	}
	t.splitInternal(parentPath)
}

func (t *BTree) splitInternal(path []int) {
	nodeID := path[len(path)-1]
	n := t.nodes[nodeID]

	mid := len(n.keys) / 2
	up := n.keys[mid]

	rightKeys := append([]int64(nil), n.keys[mid+1:]...)
	rightChildren := append([]int(nil), n.children[mid+1:]...)

	t.nodes[nodeID].keys = n.keys[:mid]
	t.nodes[nodeID].children = n.children[:mid+1]

	rightID := len(t.nodes)
	t.nodes = append(t.nodes, node{
		leaf:     false,
		keys:     rightKeys,
		children: rightChildren,
	})

	t.insertIntoParent(path[:len(path)-1], nodeID, up, rightID)
}

func keysAsInts(keys []int64) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = intKey(k)
	}
	return out
}

// intKey maps an int64 key space down to sort.SearchInts' int domain in a
// way that preserves order for the realistic (non-overflowing) key ranges
// this index is used with; callers needing exact equality re-check keys[i]
// against the original int64 after the search.
func intKey(v int64) int {
	if v > int64(^uint(0)>>1) {
		return int(^uint(0) >> 1)
	}
	if v < -int64(^uint(0)>>1)-1 {
		return -int(^uint(0)>>1) - 1
	}
	return int(v)
}

func insertIntAt(s []int64, i int, v int64) []int64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertIntAtSlice(s []int, i int, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertEntriesAt(s [][]treeEntry, i int, v []treeEntry) [][]treeEntry {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
