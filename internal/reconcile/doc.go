// Package reconcile implements the latest-value reconciliation state machine.
//
// A Machine merges two independently timed inputs for one entity: a one-shot
// historical lookup (the "LAD", last available datum) and a live push stream. It
// emits a value to its consumer only when that value is inside the window (in Fixed
// mode) and strictly newer than the last emitted value.
//
// # States
//
//	AwaitingLAD ──historical result──▶ LADResolved
//	     ▲                                  │
//	     └──── time-key change / refetch ───┘
//
// Disposed is reachable from both states and is terminal.
//
// While awaiting the historical result, push arrivals are coalesced into a single
// candidate slot. Once the result settles (hit, empty or failed alike), the result
// is emitted first and the candidate is then evaluated exactly like a fresh arrival.
//
// # Concurrency
//
// Machine is not safe for concurrent use. Callers serialize every method call and
// the emit callback runs synchronously inside the call that triggered it. Serial
// provides a non-blocking FIFO executor suitable for that purpose.
package reconcile
