package types

// State represents the lifecycle state of a Reconciler.
//
// States follow this progression:
//
//	StateAwaitingLAD → StateLADResolved
//
// A time-key change (or a non-tick bounds change under the refetch policy) moves a
// resolved Reconciler back to StateAwaitingLAD. StateDisposed is reachable from
// either state and is terminal.
type State int

const (
	// StateAwaitingLAD indicates the historical lookup has not settled yet.
	// Push arrivals are coalesced into a single Candidate.
	StateAwaitingLAD State = iota

	// StateLADResolved indicates the historical lookup settled and push arrivals are
	// filtered and emitted directly.
	StateLADResolved

	// StateDisposed indicates the Reconciler was torn down.
	StateDisposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingLAD:
		return "AwaitingLAD"
	case StateLADResolved:
		return "LADResolved"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}
