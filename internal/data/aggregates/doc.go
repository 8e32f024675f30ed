// Package aggregates owns the transaction boundary for the progression write paths.
//
// Every invariant-critical write (finalizing an activity, crediting a streak day,
// appending to the experience ledger) goes through Writer.Write, which runs the body
// in one transaction, maps driver failures onto domain error codes, reports the
// outcome to Hooks and retries conflicts raised by racing ledger appends.
package aggregates
