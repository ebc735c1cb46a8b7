package types

// Mode selects how inbound values are filtered against the current Bounds.
type Mode int

const (
	// ModeFixed means no clock is attached and values outside Bounds are dropped.
	ModeFixed Mode = iota

	// ModeLive means a clock is attached; Bounds are advanced by the clock and are
	// not used for filtering.
	ModeLive
)

// ModeFor derives the Mode from the presence of a clock.
func ModeFor(clock Clock) Mode {
	if clock == nil {
		return ModeFixed
	}

	return ModeLive
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "Fixed"
	case ModeLive:
		return "Live"
	default:
		return "Unknown"
	}
}
