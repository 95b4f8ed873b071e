// Package lstore is the database-level façade over the table engine: it
// owns the on-disk directory layout, reconstructs tables on Open, persists
// their configuration and hash-index snapshots on Close, and wires each
// table into a background merge scheduler.
//
// What: Database is a named collection of tables rooted at one directory,
// one subdirectory per table. Every table is paired with the
// lock.TableLock and querylayer.Query spec.md §4.7/§4.8 require a caller to
// go through — Database's own Insert/Update/Delete/Select/Sum/Increment
// methods all take that path. CreateTable and GetTable also return the bare
// *engine.Table; mutating it directly bypasses the lock.
// How: each table subdirectory carries a fixed-width __table_info__.bin
// (D, key_col) plus a __table_config__.yaml sidecar for the rest of its
// tunables, mirroring the teacher's habit of keeping a small binary header
// next to a human-editable config file.
// Why: the binary header is what a reopening process must trust to even
// know how many columns to expect; the YAML sidecar is what an operator
// actually wants to read or hand-edit.
package lstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lstorego/lstore/internal/engine"
	"github.com/lstorego/lstore/internal/index"
	"github.com/lstorego/lstore/internal/lock"
	"github.com/lstorego/lstore/internal/merge"
	"github.com/lstorego/lstore/internal/querylayer"
	"github.com/lstorego/lstore/internal/rid"
	"github.com/lstorego/lstore/internal/txn"
)

// tableHandle is everything Database tracks for one table: the engine
// itself, the table-granularity lock every Transaction acquires before
// touching it, and the sentinel-boundary Query wrapping it.
type tableHandle struct {
	table *engine.Table
	lock  *lock.TableLock
	query *querylayer.Query
}

// Database is a named collection of tables persisted under one root
// directory.
type Database struct {
	mu        sync.Mutex
	name      string
	dir       string
	tables    map[string]*tableHandle
	scheduler *merge.Scheduler
	started   bool
}

// Open reconstructs a Database rooted at filepath.Join(root, name),
// creating the directory if absent, and loads every table subdirectory it
// finds (identified by the presence of __table_info__.bin). Each loaded
// table's hash-kind columns are restored from their JSON snapshots and its
// other indexed columns are rebuilt via engine.Table.Bootstrap.
func Open(root, name string) (*Database, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("lstore: open %q: %w", dir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, dbConfigFile)); os.IsNotExist(err) {
		if err := writeDBConfig(dir, name); err != nil {
			return nil, err
		}
	}

	db := &Database{
		name:      name,
		dir:       dir,
		tables:    make(map[string]*tableHandle),
		scheduler: merge.NewScheduler(),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("lstore: read %q: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tableDir := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(tableDir, tableInfoFile)); err != nil {
			continue
		}
		tb, err := loadTable(tableDir)
		if err != nil {
			return nil, fmt.Errorf("lstore: load table %q: %w", e.Name(), err)
		}
		h := &tableHandle{table: tb, lock: lock.New(), query: querylayer.New(tb)}
		db.tables[e.Name()] = h
		db.scheduler.Register(e.Name(), tb)
	}
	return db, nil
}

// StartMergeSweep begins the scheduler's periodic sweep on the given
// standard 5-field cron schedule, in addition to the immediate per-update
// trigger every mutating call already performs.
func (db *Database) StartMergeSweep(cronSpec string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.scheduler.Start(cronSpec); err != nil {
		return err
	}
	db.started = true
	return nil
}

// CreateTable creates a new table directory, writes its metadata files,
// constructs its engine.Table, and registers it (with its own lock and
// query wrapper) with the merge scheduler.
func (db *Database) CreateTable(name string, opts TableOptions) (*engine.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("lstore: table %q already exists", name)
	}
	tableDir := filepath.Join(db.dir, name)
	if err := os.MkdirAll(tableDir, 0755); err != nil {
		return nil, fmt.Errorf("lstore: create table dir %q: %w", tableDir, err)
	}
	if err := writeTableInfo(tableDir, opts.D, opts.KeyCol); err != nil {
		return nil, err
	}
	if err := writeTableConfig(tableDir, opts); err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = referenceClock()
	}
	tb, err := engine.NewTable(tableDir, toEngineConfig(opts, clock))
	if err != nil {
		return nil, err
	}
	db.tables[name] = &tableHandle{table: tb, lock: lock.New(), query: querylayer.New(tb)}
	db.scheduler.Register(name, tb)
	return tb, nil
}

// DropTable removes a table's directory and files entirely and stops
// watching it for merges.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.tables[name]
	if !ok {
		return fmt.Errorf("lstore: table %q does not exist", name)
	}
	if err := h.table.DeleteFiles(); err != nil {
		return err
	}
	delete(db.tables, name)
	db.scheduler.Unregister(name)
	return os.RemoveAll(filepath.Join(db.dir, name))
}

// GetTable returns the named table and whether it exists. Mutating it
// directly bypasses the table's lock — prefer Insert/Update/Delete/Select/
// Sum/Increment, which run through it via a real Transaction.
func (db *Database) GetTable(name string) (*engine.Table, bool) {
	h, ok := db.handle(name)
	if !ok {
		return nil, false
	}
	return h.table, true
}

// Tables lists every table name currently registered.
func (db *Database) Tables() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	return names
}

// CheckMerge triggers an immediate merge of name if its update counter has
// crossed its threshold. Called automatically after every commit that can
// move the counter (Update/Increment); safe and cheap to call redundantly.
func (db *Database) CheckMerge(name string) {
	db.scheduler.CheckAndTrigger(name)
}

func (db *Database) handle(name string) (*tableHandle, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.tables[name]
	return h, ok
}

// Insert runs a single-query Transaction against table's lock (spec.md
// §4.7/§4.8): acquire, run, release, exactly the path a multi-query
// Transaction takes.
func (db *Database) Insert(table string, vals []int64) bool {
	h, ok := db.handle(table)
	if !ok {
		return false
	}
	tx := txn.New()
	tx.Add(h.query.InsertQuery(vals))
	return tx.Run(h.lock)
}

// Update runs a single-query Transaction, then checks whether the
// table's update counter has crossed its merge threshold (spec.md §4.6.2
// step 8).
func (db *Database) Update(table string, pk int64, vals []*int64) bool {
	h, ok := db.handle(table)
	if !ok {
		return false
	}
	tx := txn.New()
	tx.Add(h.query.UpdateQuery(pk, vals))
	committed := tx.Run(h.lock)
	db.CheckMerge(table)
	return committed
}

// Delete runs a single-query Transaction against table's lock.
func (db *Database) Delete(table string, pk int64) bool {
	h, ok := db.handle(table)
	if !ok {
		return false
	}
	tx := txn.New()
	tx.Add(h.query.DeleteQuery(pk))
	return tx.Run(h.lock)
}

// Select runs a single-query (shared-lock) Transaction and returns its
// result, or nil if the table doesn't exist.
func (db *Database) Select(table string, key int64, keyCol int, mask []bool) []querylayer.Record {
	return db.SelectVersion(table, key, keyCol, mask, 0)
}

// SelectVersion is Select at a relative version.
func (db *Database) SelectVersion(table string, key int64, keyCol int, mask []bool, relVer int) []querylayer.Record {
	h, ok := db.handle(table)
	if !ok {
		return nil
	}
	var out []querylayer.Record
	tx := txn.New()
	tx.Add(h.query.SelectQuery(key, keyCol, mask, relVer, &out))
	tx.Run(h.lock)
	return out
}

// Sum runs a single-query (shared-lock) Transaction and returns its result,
// or 0 if the table doesn't exist.
func (db *Database) Sum(table string, lo, hi int64, col int) int64 {
	return db.SumVersion(table, lo, hi, col, 0)
}

// SumVersion is Sum at a relative version.
func (db *Database) SumVersion(table string, lo, hi int64, col int, relVer int) int64 {
	h, ok := db.handle(table)
	if !ok {
		return 0
	}
	var out int64
	tx := txn.New()
	tx.Add(h.query.SumQuery(lo, hi, col, relVer, &out))
	tx.Run(h.lock)
	return out
}

// Increment runs a single-query Transaction wrapping the select-then-update
// convenience operation, then checks the merge threshold exactly as Update
// does, since Increment also advances the table's update counter.
func (db *Database) Increment(table string, pk int64, col int) bool {
	h, ok := db.handle(table)
	if !ok {
		return false
	}
	tx := txn.New()
	tx.Add(h.query.IncrementQuery(pk, col))
	committed := tx.Run(h.lock)
	db.CheckMerge(table)
	return committed
}

// RunTransaction runs an arbitrary caller-assembled Transaction (built from
// Query.*Query helpers) against table's lock, then checks the merge
// threshold unconditionally — cheap, and correct regardless of which kinds
// of queries the transaction contained.
func (db *Database) RunTransaction(table string, tx *txn.Transaction) bool {
	h, ok := db.handle(table)
	if !ok {
		return false
	}
	committed := tx.Run(h.lock)
	db.CheckMerge(table)
	return committed
}

// Close flushes every table's dirty pages, persists every hash-kind
// column's index snapshot, and stops the merge scheduler.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.started {
		db.scheduler.Stop()
	}
	for name, h := range db.tables {
		if err := h.table.Flush(); err != nil {
			return fmt.Errorf("lstore: flush table %q: %w", name, err)
		}
		if err := persistHashIndexes(filepath.Join(db.dir, name), h.table); err != nil {
			return fmt.Errorf("lstore: persist indexes for %q: %w", name, err)
		}
	}
	return nil
}

func toEngineConfig(opts TableOptions, clock func() int64) engine.Config {
	return engine.Config{
		D:              opts.D,
		KeyCol:         opts.KeyCol,
		Cumulative:     opts.Cumulative,
		PageSize:       opts.PageSize,
		RecordSize:     opts.RecordSize,
		IndexKinds:     opts.IndexKinds,
		BPlusMaxDegree: opts.BPlusMaxDegree,
		BufferCapacity: opts.BufferCapacity,
		MergeThreshold: opts.MergeThreshold,
		Clock:          clock,
	}
}

// referenceClock returns a clock reporting nanoseconds since the moment
// it's constructed, matching spec.md's "offset from a table-creation
// reference moment" timestamp semantics without depending on wall-clock
// reads anywhere else in the engine.
func referenceClock() func() int64 {
	epoch := time.Now()
	return func() int64 { return time.Since(epoch).Nanoseconds() }
}

func loadTable(tableDir string) (*engine.Table, error) {
	d, keyCol, err := readTableInfo(tableDir)
	if err != nil {
		return nil, err
	}
	opts, err := readTableConfig(tableDir)
	if err != nil {
		return nil, err
	}
	// __table_info__.bin is the authoritative header; override whatever the
	// YAML sidecar claims for the two fields it duplicates.
	opts.D, opts.KeyCol = d, keyCol

	tb, err := engine.NewTable(tableDir, toEngineConfig(opts, referenceClock()))
	if err != nil {
		return nil, err
	}

	hashSnapshots := make(map[int]map[int64][]rid.RID)
	for col, kind := range opts.IndexKinds {
		if kind != index.KindHash {
			continue
		}
		snap, err := readHashSnapshot(tableDir, col)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			hashSnapshots[col] = snap
		}
	}
	if err := tb.Bootstrap(hashSnapshots); err != nil {
		return nil, fmt.Errorf("lstore: bootstrap: %w", err)
	}
	return tb, nil
}
