package timectx

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/lastvalue/types"
)

// LocalClockKey is the key of clocks created by NewLocalClock("").
const LocalClockKey = "local"

// LocalClock is a Clock reading the local wall clock in Unix epoch milliseconds.
type LocalClock struct {
	key string
	now func() time.Time
}

// Compile-time assertion that LocalClock implements Clock.
var _ types.Clock = (*LocalClock)(nil)

// NewLocalClock creates a wall clock identified by key ("local" when empty).
func NewLocalClock(key string) *LocalClock {
	if key == "" {
		key = LocalClockKey
	}

	return &LocalClock{key: key, now: time.Now}
}

// Key returns the clock identifier.
func (c *LocalClock) Key() string { return c.key }

// Now returns the current time in epoch milliseconds.
func (c *LocalClock) Now() types.Instant {
	return types.Instant(c.now().UnixMilli())
}

// Follow attaches clock to tc and advances the bounds every interval so the window
// always ends at clock.Now() and spans span units. Updates are delivered as ticks.
//
// Follow blocks until ctx is cancelled, then detaches the clock (leaving tc in
// Fixed mode with the last window) and returns nil.
//
// Parameters:
//   - ctx: Controls how long the clock is followed
//   - tc: Context to drive
//   - clock: Clock to attach
//   - span: Window width in Instant units
//   - interval: Tick interval
//
// Returns:
//   - error: Invalid arguments, nil on cancellation
func Follow(ctx context.Context, tc *Context, clock types.Clock, span types.Instant, interval time.Duration) error {
	if tc == nil {
		return types.ErrTimeContextRequired
	}
	if clock == nil {
		return errors.New("clock is required")
	}
	if interval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if span < 0 {
		return types.ErrInvalidBounds
	}

	tick := func() {
		now := clock.Now()
		if err := tc.Tick(types.Bounds{Start: now - span, End: now}); err != nil {
			tc.logger.Warn("clock tick rejected", "error", err)
		}
	}

	tc.SetClock(clock)
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tc.SetClock(nil)
			return nil
		case <-ticker.C:
			tick()
		}
	}
}
