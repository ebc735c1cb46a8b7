package timectx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/lastvalue/internal/logging"
	"github.com/arloliu/lastvalue/internal/metrics"
	"github.com/arloliu/lastvalue/types"
)

// Change kinds reported to metrics.
const (
	KindBounds     = "bounds"
	KindTick       = "tick"
	KindClock      = "clock"
	KindTimeSystem = "timesystem"
)

// Context is an in-memory Time Context. It is safe for concurrent use.
type Context struct {
	mu         sync.RWMutex
	bounds     types.Bounds
	clock      types.Clock
	timeSystem types.TimeSystem

	nextID             atomic.Uint64
	boundsHandlers     *xsync.Map[uint64, func(types.Bounds, bool)]
	clockHandlers      *xsync.Map[uint64, func(types.Clock)]
	timeSystemHandlers *xsync.Map[uint64, func(types.TimeSystem)]

	logger  types.Logger
	metrics types.TimeContextMetrics
}

// Compile-time assertion that Context implements TimeContext.
var _ types.TimeContext = (*Context)(nil)

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for change notifications.
func WithLogger(logger types.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m types.TimeContextMetrics) Option {
	return func(c *Context) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock attaches an initial clock, starting the context in Live mode.
func WithClock(clock types.Clock) Option {
	return func(c *Context) {
		c.clock = clock
	}
}

// New creates a Context with the given initial bounds and time system and no clock.
//
// Parameters:
//   - bounds: Initial window
//   - ts: Initial time system
//   - opts: Optional logger, metrics and clock
//
// Returns:
//   - *Context: A ready-to-use context
func New(bounds types.Bounds, ts types.TimeSystem, opts ...Option) *Context {
	c := &Context{
		bounds:             bounds,
		timeSystem:         ts,
		boundsHandlers:     xsync.NewMap[uint64, func(types.Bounds, bool)](),
		clockHandlers:      xsync.NewMap[uint64, func(types.Clock)](),
		timeSystemHandlers: xsync.NewMap[uint64, func(types.TimeSystem)](),
		logger:             logging.NewNop(),
		metrics:            metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bounds returns the current window.
func (c *Context) Bounds() types.Bounds {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.bounds
}

// Clock returns the attached clock, or nil in Fixed mode.
func (c *Context) Clock() types.Clock {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.clock
}

// TimeSystem returns the active time system.
func (c *Context) TimeSystem() types.TimeSystem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.timeSystem
}

// OnBounds registers a bounds handler and returns its unregister function.
func (c *Context) OnBounds(handler func(b types.Bounds, tick bool)) func() {
	id := c.nextID.Add(1)
	c.boundsHandlers.Store(id, handler)

	return func() { c.boundsHandlers.Delete(id) }
}

// OnClock registers a clock handler and returns its unregister function.
func (c *Context) OnClock(handler func(clock types.Clock)) func() {
	id := c.nextID.Add(1)
	c.clockHandlers.Store(id, handler)

	return func() { c.clockHandlers.Delete(id) }
}

// OnTimeSystem registers a time system handler and returns its unregister function.
func (c *Context) OnTimeSystem(handler func(ts types.TimeSystem)) func() {
	id := c.nextID.Add(1)
	c.timeSystemHandlers.Store(id, handler)

	return func() { c.timeSystemHandlers.Delete(id) }
}

// SetBounds redefines the window and notifies handlers with tick=false.
// Setting the current window again is a no-op.
//
// Returns:
//   - error: ErrInvalidBounds if start is after end
func (c *Context) SetBounds(b types.Bounds) error {
	return c.updateBounds(b, false)
}

// Tick advances the window as a running clock would and notifies handlers with
// tick=true.
//
// Returns:
//   - error: ErrInvalidBounds if start is after end
func (c *Context) Tick(b types.Bounds) error {
	return c.updateBounds(b, true)
}

func (c *Context) updateBounds(b types.Bounds, tick bool) error {
	if err := b.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if !tick && c.bounds == b {
		c.mu.Unlock()
		return nil
	}
	c.bounds = b
	c.mu.Unlock()

	kind := KindBounds
	if tick {
		kind = KindTick
	} else {
		c.logger.Debug("bounds changed", "bounds", b)
	}
	c.metrics.RecordTimeContextChange(kind)

	c.boundsHandlers.Range(func(_ uint64, h func(types.Bounds, bool)) bool {
		h(b, tick)
		return true
	})

	return nil
}

// SetClock attaches a clock, or detaches the current one when clock is nil.
func (c *Context) SetClock(clock types.Clock) {
	c.mu.Lock()
	prev := c.clock
	c.clock = clock
	c.mu.Unlock()

	if prev == nil && clock == nil {
		return
	}

	c.logger.Debug("clock changed", "from", clockKey(prev), "to", clockKey(clock))
	c.metrics.RecordTimeContextChange(KindClock)

	c.clockHandlers.Range(func(_ uint64, h func(types.Clock)) bool {
		h(clock)
		return true
	})
}

// SetTimeSystem switches the active time system. Setting the current one again is
// a no-op.
//
// Returns:
//   - error: ErrUnknownTimeKey if ts has an empty key
func (c *Context) SetTimeSystem(ts types.TimeSystem) error {
	if ts.Key == "" {
		return fmt.Errorf("%w: empty time system key", types.ErrUnknownTimeKey)
	}

	c.mu.Lock()
	if c.timeSystem == ts {
		c.mu.Unlock()
		return nil
	}
	prev := c.timeSystem
	c.timeSystem = ts
	c.mu.Unlock()

	c.logger.Debug("time system changed", "from", prev.Key, "to", ts.Key)
	c.metrics.RecordTimeContextChange(KindTimeSystem)

	c.timeSystemHandlers.Range(func(_ uint64, h func(types.TimeSystem)) bool {
		h(ts)
		return true
	})

	return nil
}

func clockKey(c types.Clock) string {
	if c == nil {
		return ""
	}

	return c.Key()
}
