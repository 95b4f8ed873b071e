// Package txn implements the Transaction and Worker execution model:
// a transaction is an ordered batch of queries run under a single
// acquire/release of a table's lock; a worker runs a batch of transactions
// on its own goroutine and reports how many committed (spec.md §4.8).
package txn

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lstorego/lstore/internal/lock"
)

// Query is one operation a Transaction runs against a table. Kind decides
// the lock level the owning Transaction must hold; Run performs the
// operation and reports the sentinel success/failure value described in
// spec.md §7 — false/empty/zero on any failure, never an error.
type Query struct {
	Kind Kind
	Run  func() bool
}

// Kind classifies a Query as needing shared or exclusive table access.
type Kind int

const (
	Select Kind = iota
	Sum
	Insert
	Update
	Delete
)

// IsExclusive reports whether this query kind requires the exclusive lock.
func (k Kind) IsExclusive() bool {
	return k == Insert || k == Update || k == Delete
}

// Transaction is an ordered list of queries run under one lock acquisition.
// ID identifies it for logging/diagnostics; it plays no role in semantics.
type Transaction struct {
	ID      uuid.UUID
	queries []Query
	results []bool
}

// New creates an empty transaction with a fresh identity.
func New() *Transaction {
	return &Transaction{ID: uuid.New()}
}

// Add appends a query to the transaction's ordered list.
func (tx *Transaction) Add(q Query) {
	tx.queries = append(tx.queries, q)
}

// isExclusive derives the transaction's required lock level as the OR over
// every query's kind.
func (tx *Transaction) isExclusive() bool {
	for _, q := range tx.queries {
		if q.Kind.IsExclusive() {
			return true
		}
	}
	return false
}

// Results returns each query's recorded result, in order, after Run.
func (tx *Transaction) Results() []bool {
	return tx.results
}

// Run acquires the table lock at the level derived from the transaction's
// queries, executes them in order, and releases the lock. It returns true
// (commit) only if the lock was acquired and every query succeeded; any
// query failure aborts the remaining queries and releases the lock without
// running them. Rollback of already-applied writes is not performed — see
// spec.md §7, which calls this out as a known limitation of the base design.
func (tx *Transaction) Run(l *lock.TableLock) bool {
	level := lock.Shared
	if tx.isExclusive() {
		level = lock.Exclusive
	}
	if !l.Request(level) {
		return false
	}
	defer l.Release(level)

	tx.results = make([]bool, 0, len(tx.queries))
	for _, q := range tx.queries {
		ok := q.Run()
		tx.results = append(tx.results, ok)
		if !ok {
			return false
		}
	}
	return true
}

// Worker runs a batch of transactions sequentially on its own goroutine.
type Worker struct {
	transactions []*Transaction
	lock         *lock.TableLock

	wg     sync.WaitGroup
	mu     sync.Mutex
	result int
}

// NewWorker creates a worker that will run txs, in order, against l.
func NewWorker(l *lock.TableLock, txs ...*Transaction) *Worker {
	return &Worker{transactions: txs, lock: l}
}

// Run spawns a goroutine that executes each transaction in order.
func (w *Worker) Run() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		committed := 0
		for _, tx := range w.transactions {
			if tx.Run(w.lock) {
				committed++
			}
		}
		w.mu.Lock()
		w.result = committed
		w.mu.Unlock()
	}()
}

// Join blocks until the worker's goroutine has finished.
func (w *Worker) Join() {
	w.wg.Wait()
}

// Result returns the number of transactions that committed. Only valid
// after Join returns.
func (w *Worker) Result() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}
