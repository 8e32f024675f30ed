// Package aggregates holds the coded errors returned by ledger writes.
//
// Every write of the progression engine (a session finalize-and-credit, a
// streak-day credit, an experience ledger append, a reversal) reports failure
// as an *Error whose Code tells callers whether to retry, reject the input or
// surface a conflict. Persistence lives in internal/data/aggregates.
package aggregates
