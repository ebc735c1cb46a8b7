package types

// BoundsChangePolicy decides how a Reconciler reacts when the window is redefined
// (a bounds change that is not a clock tick).
type BoundsChangePolicy string

const (
	// BoundsRefetch re-issues the historical request for the new window and resets
	// the candidate and the emitted baseline, mirroring a time-key change.
	BoundsRefetch BoundsChangePolicy = "refetch"

	// BoundsRefilter keeps the emitted baseline and only applies the new window to
	// values that arrive afterwards.
	BoundsRefilter BoundsChangePolicy = "refilter"
)

// Valid reports whether p is a known policy.
func (p BoundsChangePolicy) Valid() bool {
	return p == BoundsRefetch || p == BoundsRefilter
}
