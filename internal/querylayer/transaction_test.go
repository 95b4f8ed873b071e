package querylayer

import (
	"testing"

	"github.com/lstorego/lstore/internal/lock"
	"github.com/lstorego/lstore/internal/txn"
)

// TestConcurrentWorkersInsertThroughRealLock runs two real txn.Workers, each
// driving 50 single-insert transactions, against one shared *lock.TableLock
// in front of one querylayer.Query — exercising the synchronization path a
// caller actually goes through (lock.TableLock + txn.Transaction/Worker),
// not just the table's own internal mutex.
func TestConcurrentWorkersInsertThroughRealLock(t *testing.T) {
	q := newTestQuery(t, true)
	l := lock.New()

	newWorker := func(base int64) *txn.Worker {
		var txs []*txn.Transaction
		for i := int64(0); i < 50; i++ {
			tx := txn.New()
			pk := base + i
			tx.Add(q.InsertQuery([]int64{pk, pk * 10}))
			txs = append(txs, tx)
		}
		return txn.NewWorker(l, txs...)
	}

	workerA := newWorker(0)
	workerB := newWorker(1000)

	workerA.Run()
	workerB.Run()
	workerA.Join()
	workerB.Join()

	committed := workerA.Result() + workerB.Result()

	totalA := q.Sum(0, 49, 0)
	totalB := q.Sum(1000, 1049, 0)
	rowsPresent := 0
	for pk := int64(0); pk < 50; pk++ {
		if len(q.Select(pk, 0, []bool{true, false})) == 1 {
			rowsPresent++
		}
	}
	for pk := int64(1000); pk < 1050; pk++ {
		if len(q.Select(pk, 0, []bool{true, false})) == 1 {
			rowsPresent++
		}
	}

	if rowsPresent != committed {
		t.Fatalf("rows present = %d, want committed count %d", rowsPresent, committed)
	}
	if committed == 0 {
		t.Fatalf("no transaction committed across either worker")
	}

	// Every primary key in A's range sums to itself; confirm no partial or
	// duplicated writes by checking the aggregate matches the rows we saw.
	var wantA, wantB int64
	for pk := int64(0); pk < 50; pk++ {
		if len(q.Select(pk, 0, []bool{true, false})) == 1 {
			wantA += pk
		}
	}
	for pk := int64(1000); pk < 1050; pk++ {
		if len(q.Select(pk, 0, []bool{true, false})) == 1 {
			wantB += pk
		}
	}
	if totalA != wantA || totalB != wantB {
		t.Fatalf("Sum mismatch: totalA=%d wantA=%d totalB=%d wantB=%d", totalA, wantA, totalB, wantB)
	}
}

// TestTransactionRollsBackNothingOnMixedBatch checks a transaction with a
// failing query aborts the remainder of its own batch (spec.md §7) when run
// through the real lock, not just through Transaction.Run in isolation.
func TestTransactionRollsBackNothingOnMixedBatch(t *testing.T) {
	q := newTestQuery(t, true)
	l := lock.New()

	q.Insert([]int64{1, 10})

	tx := txn.New()
	tx.Add(q.InsertQuery([]int64{1, 99})) // duplicate pk, fails
	tx.Add(q.InsertQuery([]int64{2, 20})) // never runs
	if tx.Run(l) {
		t.Fatalf("transaction with a failing query should not commit")
	}
	if len(q.Select(2, 0, []bool{true, true})) != 0 {
		t.Fatalf("query after the failure should not have run")
	}
}
