package querylayer

import "github.com/lstorego/lstore/internal/txn"

// InsertQuery wraps Insert as a txn.Query, so it can be batched into a
// Transaction and run under a table's lock instead of called directly.
func (q *Query) InsertQuery(vals []int64) txn.Query {
	return txn.Query{Kind: txn.Insert, Run: func() bool { return q.Insert(vals) }}
}

// UpdateQuery wraps Update as a txn.Query.
func (q *Query) UpdateQuery(pk int64, vals []*int64) txn.Query {
	return txn.Query{Kind: txn.Update, Run: func() bool { return q.Update(pk, vals) }}
}

// DeleteQuery wraps Delete as a txn.Query.
func (q *Query) DeleteQuery(pk int64) txn.Query {
	return txn.Query{Kind: txn.Delete, Run: func() bool { return q.Delete(pk) }}
}

// SelectQuery wraps SelectVersion as a txn.Query, storing its result in
// *out. A read always reports success to the transaction; an empty result
// is a valid outcome, not a failure.
func (q *Query) SelectQuery(key int64, keyCol int, mask []bool, relVer int, out *[]Record) txn.Query {
	return txn.Query{Kind: txn.Select, Run: func() bool {
		*out = q.SelectVersion(key, keyCol, mask, relVer)
		return true
	}}
}

// SumQuery wraps SumVersion as a txn.Query, storing its result in *out.
func (q *Query) SumQuery(lo, hi int64, col int, relVer int, out *int64) txn.Query {
	return txn.Query{Kind: txn.Sum, Run: func() bool {
		*out = q.SumVersion(lo, hi, col, relVer)
		return true
	}}
}

// IncrementQuery wraps Increment as a txn.Query. It reads and writes under
// one lock acquisition even though Increment itself issues a Select
// followed by an Update against the table.
func (q *Query) IncrementQuery(pk int64, col int) txn.Query {
	return txn.Query{Kind: txn.Update, Run: func() bool { return q.Increment(pk, col) }}
}
