package timectx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lastvalue/internal/logger"
	"github.com/arloliu/lastvalue/types"
)

type fixedClock struct {
	key string
	now types.Instant
}

func (c fixedClock) Key() string         { return c.key }
func (c fixedClock) Now() types.Instant { return c.now }

func TestContext_Snapshot(t *testing.T) {
	c := New(types.Bounds{Start: 0, End: 10}, types.TimeSystem{Key: "utc"})

	require.Equal(t, types.Bounds{Start: 0, End: 10}, c.Bounds())
	require.Nil(t, c.Clock())
	require.Equal(t, "utc", c.TimeSystem().Key)
	require.Equal(t, types.ModeFixed, types.ModeFor(c.Clock()))

	live := New(types.Bounds{}, types.TimeSystem{Key: "utc"}, WithClock(fixedClock{key: "local"}))
	require.Equal(t, types.ModeLive, types.ModeFor(live.Clock()))
}

func TestContext_BoundsNotifications(t *testing.T) {
	c := New(types.Bounds{Start: 0, End: 10}, types.TimeSystem{Key: "utc"}, WithLogger(logger.NewTest(t)))

	type event struct {
		b    types.Bounds
		tick bool
	}
	var got []event
	off := c.OnBounds(func(b types.Bounds, tick bool) {
		got = append(got, event{b, tick})
	})

	require.NoError(t, c.SetBounds(types.Bounds{Start: 5, End: 15}))
	require.NoError(t, c.Tick(types.Bounds{Start: 6, End: 16}))
	require.ErrorIs(t, c.SetBounds(types.Bounds{Start: 20, End: 10}), types.ErrInvalidBounds)

	require.Equal(t, []event{
		{types.Bounds{Start: 5, End: 15}, false},
		{types.Bounds{Start: 6, End: 16}, true},
	}, got)
	require.Equal(t, types.Bounds{Start: 6, End: 16}, c.Bounds())

	off()
	require.NoError(t, c.SetBounds(types.Bounds{Start: 0, End: 1}))
	require.Len(t, got, 2, "handler removed")
}

func TestContext_UnchangedBoundsAreNotRedefinitions(t *testing.T) {
	rec := &kindRecorder{}
	c := New(types.Bounds{Start: 0, End: 10}, types.TimeSystem{Key: "utc"}, WithMetrics(rec))

	var ticks []bool
	c.OnBounds(func(_ types.Bounds, tick bool) {
		ticks = append(ticks, tick)
	})

	require.NoError(t, c.SetBounds(types.Bounds{Start: 0, End: 10}))
	require.Empty(t, ticks, "same window")

	// A tick to the same window still advances live output.
	require.NoError(t, c.Tick(types.Bounds{Start: 0, End: 10}))
	require.NoError(t, c.SetBounds(types.Bounds{Start: 0, End: 20}))
	require.NoError(t, c.SetBounds(types.Bounds{Start: 0, End: 20}))
	require.Equal(t, []bool{true, false}, ticks)
	require.Equal(t, map[string]int{KindTick: 1, KindBounds: 1}, rec.kinds)
}

func TestContext_ClockNotifications(t *testing.T) {
	c := New(types.Bounds{}, types.TimeSystem{Key: "utc"})

	var got []types.Clock
	c.OnClock(func(clock types.Clock) { got = append(got, clock) })

	c.SetClock(nil) // no change
	c.SetClock(fixedClock{key: "local"})
	c.SetClock(nil)

	require.Len(t, got, 2)
	require.Equal(t, "local", got[0].Key())
	require.Nil(t, got[1])
}

func TestContext_TimeSystemNotifications(t *testing.T) {
	c := New(types.Bounds{}, types.TimeSystem{Key: "utc"})

	var got []string
	c.OnTimeSystem(func(ts types.TimeSystem) { got = append(got, ts.Key) })

	require.NoError(t, c.SetTimeSystem(types.TimeSystem{Key: "utc"}))
	require.NoError(t, c.SetTimeSystem(types.TimeSystem{Key: "scet"}))
	require.ErrorIs(t, c.SetTimeSystem(types.TimeSystem{}), types.ErrUnknownTimeKey)

	require.Equal(t, []string{"scet"}, got)
	require.Equal(t, "scet", c.TimeSystem().Key)
}

func TestContext_HandlerMayReadContext(t *testing.T) {
	c := New(types.Bounds{}, types.TimeSystem{Key: "utc"})

	var seen types.Bounds
	c.OnBounds(func(types.Bounds, bool) { seen = c.Bounds() })

	require.NoError(t, c.SetBounds(types.Bounds{Start: 1, End: 2}))
	require.Equal(t, types.Bounds{Start: 1, End: 2}, seen)
}

func TestContext_ConcurrentRegistration(t *testing.T) {
	c := New(types.Bounds{}, types.TimeSystem{Key: "utc"})

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			off := c.OnBounds(func(types.Bounds, bool) {})
			_ = c.Tick(types.Bounds{Start: 0, End: 1})
			off()
		})
	}
	wg.Wait()

	require.Zero(t, c.boundsHandlers.Size())
}

type kindRecorder struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (r *kindRecorder) RecordTimeContextChange(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kinds == nil {
		r.kinds = make(map[string]int)
	}
	r.kinds[kind]++
}

func TestContext_Metrics(t *testing.T) {
	rec := &kindRecorder{}
	c := New(types.Bounds{}, types.TimeSystem{Key: "utc"}, WithMetrics(rec))

	require.NoError(t, c.SetBounds(types.Bounds{Start: 0, End: 1}))
	require.NoError(t, c.Tick(types.Bounds{Start: 0, End: 2}))
	require.NoError(t, c.Tick(types.Bounds{Start: 0, End: 3}))
	c.SetClock(fixedClock{key: "local"})
	require.NoError(t, c.SetTimeSystem(types.TimeSystem{Key: "scet"}))

	require.Equal(t, map[string]int{
		KindBounds:     1,
		KindTick:       2,
		KindClock:      1,
		KindTimeSystem: 1,
	}, rec.kinds)
}
