// Package engine implements the Table engine: record layout, the
// indirection-chain versioning protocol, tail writes under the cumulative
// or delta policy, and the background-eligible merge that consolidates a
// hot base page with its tails. It is the component everything else in
// this module (indexes aside) is built to serve.
//
// What: insert/update/delete/locate/sum over fixed-width columnar pages
// addressed by RID, backed by a PageDirectory and per-column indexes.
// How: every logical row is 5 metadata columns (RID, INDIRECTION,
// SCHEMA_ENCODING, CREATED_TIME, UPDATED_TIME) followed by D data
// columns, each column its own page family so that offset o in any
// column's page P is always the same logical row.
// Why: fixed width and columnar layout make merge and tail application
// cheap: both just replay a schema bitmap over a handful of int64 reads.
package engine

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/lstorego/lstore/internal/buffer"
	"github.com/lstorego/lstore/internal/index"
	"github.com/lstorego/lstore/internal/page"
	"github.com/lstorego/lstore/internal/rid"
)

const (
	colRID = iota
	colIndirection
	colSchema
	colCreated
	colUpdated
	numMetaCols
)

func dataCol(i int) int { return numMetaCols + i }

// Config describes a table's fixed, creation-time parameters.
type Config struct {
	D              int
	KeyCol         int
	Cumulative     bool
	PageSize       int // bytes, default 4096
	RecordSize     int // bytes, must be 8 (this engine's canonical width)
	IndexKinds     []index.Kind // len D
	BPlusMaxDegree int          // default 4
	BufferCapacity int          // pages, default buffer.defaultCapacity
	MergeThreshold int          // updates, default 100
	Clock          func() int64 // nanoseconds since the table's reference epoch
}

// mergeKey is one (base_page#, column) pair touched by an update, tracked
// so merge only revisits what changed since the last sweep.
type mergeKey struct {
	page int64
	col  int
}

// Table is one table's engine state: page geometry, indexes, and the
// bookkeeping merge needs.
type Table struct {
	mu sync.Mutex

	d          int
	keyCol     int
	cumulative bool
	pageSize   int
	recordSize int

	codec rid.Codec
	fm    *page.FileManager
	pd    *buffer.Directory

	indexes    []index.Index
	indexKinds []index.Kind

	currentBasePage int64
	baseOffset      int
	currentTailPage int64
	tailOffset      int

	mergeThreshold int
	updateCounter  int
	mergeSet       map[mergeKey]bool

	clock func() int64
	tick  int64
}

// NewTable constructs a table engine rooted at dir (already created by the
// caller) with the given geometry and per-column index selection.
func NewTable(dir string, cfg Config) (*Table, error) {
	if cfg.D <= 0 {
		return nil, fmt.Errorf("engine: D must be positive")
	}
	if cfg.KeyCol < 0 || cfg.KeyCol >= cfg.D {
		return nil, fmt.Errorf("engine: key_col %d out of range for D=%d", cfg.KeyCol, cfg.D)
	}
	if len(cfg.IndexKinds) != cfg.D {
		return nil, fmt.Errorf("engine: IndexKinds must have length D=%d", cfg.D)
	}
	recordSize := cfg.RecordSize
	if recordSize == 0 {
		recordSize = 8
	}
	if recordSize != 8 {
		return nil, fmt.Errorf("engine: record_size %d unsupported, this engine only packs 8-byte int64 slots", recordSize)
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 4096
	}
	codec, err := rid.NewCodec(pageSize, recordSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	fm := page.NewFileManager(dir, recordSize)
	pd := buffer.New(fm, pageSize, cfg.BufferCapacity, buffer.Clock(cfg.Clock))

	threshold := cfg.MergeThreshold
	if threshold <= 0 {
		threshold = 100
	}

	tb := &Table{
		d:              cfg.D,
		keyCol:         cfg.KeyCol,
		cumulative:     cfg.Cumulative,
		pageSize:       pageSize,
		recordSize:     recordSize,
		codec:          codec,
		fm:             fm,
		pd:             pd,
		mergeThreshold: threshold,
		mergeSet:       make(map[mergeKey]bool),
		clock:          cfg.Clock,
	}

	maxDegree := cfg.BPlusMaxDegree
	if maxDegree < 3 {
		maxDegree = 4
	}
	tb.indexKinds = append([]index.Kind(nil), cfg.IndexKinds...)
	tb.indexes = make([]index.Index, cfg.D)
	for i, kind := range cfg.IndexKinds {
		switch kind {
		case index.KindBTree:
			tb.indexes[i] = index.NewBTree(maxDegree)
		case index.KindHash:
			tb.indexes[i] = index.NewHash()
		case index.KindLinear:
			tb.indexes[i] = tb.newLinearIndex(i)
		default:
			return nil, fmt.Errorf("engine: unknown index kind %v for column %d", kind, i)
		}
	}
	return tb, nil
}

func (tb *Table) capacity() int { return tb.pageSize / tb.recordSize }

func (tb *Table) now() int64 {
	if tb.clock != nil {
		return tb.clock()
	}
	tb.tick++
	return tb.tick
}

// D, KeyCol, Cumulative, IndexKind, PageSize, RecordSize expose the table's
// fixed configuration for the Database layer's metadata persistence.
func (tb *Table) D() int                      { return tb.d }
func (tb *Table) KeyCol() int                  { return tb.keyCol }
func (tb *Table) Cumulative() bool             { return tb.cumulative }
func (tb *Table) PageSize() int                { return tb.pageSize }
func (tb *Table) RecordSize() int              { return tb.recordSize }
func (tb *Table) IndexKind(col int) index.Kind { return tb.indexKinds[col] }

// Flush writes every dirty cached page to disk without evicting it.
func (tb *Table) Flush() error { return tb.pd.SaveAll() }

// DeleteFiles removes every page file backing this table.
func (tb *Table) DeleteFiles() error { return tb.fm.DeleteTableFiles() }

// HashSnapshot returns the forward map of column col's hashtable index, for
// persistence as hashmap_index.json. ok is false if col isn't hash-indexed.
func (tb *Table) HashSnapshot(col int) (snap map[int64][]rid.RID, ok bool) {
	h, isHash := tb.indexes[col].(*index.Hash)
	if !isHash {
		return nil, false
	}
	return h.Snapshot(), true
}

// RestoreHash rebuilds column col's hashtable index from a persisted
// forward map. No-op if col isn't hash-indexed.
func (tb *Table) RestoreHash(col int, snap map[int64][]rid.RID) {
	if h, ok := tb.indexes[col].(*index.Hash); ok {
		h.Restore(snap)
	}
}

func int64Bytes(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// familyPage returns the page for (col, isTail, pageNum), creating and
// write-through-registering it if it has never been written.
func (tb *Table) familyPage(col int, isTail bool, pageNum int64) (*page.Page, error) {
	p, err := tb.pd.Retrieve(col, isTail, pageNum)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	p = page.New(tb.pageSize, tb.recordSize)
	if err := tb.pd.Insert(col, isTail, pageNum, p); err != nil {
		return nil, err
	}
	return p, nil
}

// appendRow appends one logical row across every column of the family at
// (isTail, pageNum): RID, INDIRECTION, SCHEMA_ENCODING, CREATED_TIME,
// UPDATED_TIME, then each data column in order.
func (tb *Table) appendRow(isTail bool, pageNum int64, selfRID, indirection rid.RID, schema, created, updated int64, vals []int64) error {
	cols := []int{colRID, colIndirection, colSchema, colCreated, colUpdated}
	metaVals := []int64{int64(selfRID), int64(indirection), schema, created, updated}
	for i, c := range cols {
		p, err := tb.familyPage(c, isTail, pageNum)
		if err != nil {
			return err
		}
		if _, err := p.Append(int64Bytes(metaVals[i])); err != nil {
			return err
		}
	}
	for i, v := range vals {
		p, err := tb.familyPage(dataCol(i), isTail, pageNum)
		if err != nil {
			return err
		}
		if _, err := p.Append(int64Bytes(v)); err != nil {
			return err
		}
	}
	return nil
}

func (tb *Table) readColumnAt(col int, isTail bool, pageNum, offset int64) (int64, error) {
	p, err := tb.pd.Retrieve(col, isTail, pageNum)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, fmt.Errorf("engine: read of never-created page col=%d isTail=%v page=%d", col, isTail, pageNum)
	}
	return p.ReadInt64At(int(offset))
}

func (tb *Table) readColumnByRID(col int, r rid.RID) (int64, error) {
	isTail, pageNum, offset := tb.codec.Unpack(r)
	return tb.readColumnAt(col, isTail, pageNum, offset)
}

func (tb *Table) overwriteColumnByRID(col int, r rid.RID, value int64) error {
	isTail, pageNum, offset := tb.codec.Unpack(r)
	p, err := tb.pd.Retrieve(col, isTail, pageNum)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("engine: overwrite of never-created page col=%d isTail=%v page=%d", col, isTail, pageNum)
	}
	return p.OverwriteAt(int(offset), int64Bytes(value))
}
