package types

// Clock is a free-running time source. Attaching one to a TimeContext switches
// reconcilers into ModeLive.
type Clock interface {
	// Key identifies the clock (e.g. "local").
	Key() string

	// Now returns the current Instant of the clock.
	Now() Instant
}

// TimeSystem describes the active time system. Its Key is the time-key used to
// parse Instants out of datums.
type TimeSystem struct {
	Key string `json:"key" yaml:"key"`
}

// TimeContext exposes the current window, clock and time system, and notifies
// registered handlers when any of them change.
//
// Handlers may be invoked from any goroutine. Each registration returns a function
// that removes the handler; calling it more than once is a no-op.
//
// Implementations must tolerate many concurrent independent registrations since
// several reconcilers commonly share one context.
type TimeContext interface {
	// Bounds returns the current window.
	Bounds() Bounds

	// Clock returns the attached clock, or nil when none is attached.
	Clock() Clock

	// TimeSystem returns the active time system.
	TimeSystem() TimeSystem

	// OnBounds registers a handler for window changes. tick is true when the change
	// is a clock advance rather than a redefinition of the window.
	OnBounds(handler func(b Bounds, tick bool)) (off func())

	// OnClock registers a handler for clock attach (non-nil) and detach (nil).
	OnClock(handler func(c Clock)) (off func())

	// OnTimeSystem registers a handler for time system changes.
	OnTimeSystem(handler func(ts TimeSystem)) (off func())
}
