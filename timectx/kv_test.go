package timectx

import (
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/lastvalue/internal/logger"
	lvtest "github.com/arloliu/lastvalue/testing"
	"github.com/arloliu/lastvalue/types"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	require.Equal(t, DefaultConfig(), cfg)

	cfg = Config{Bucket: "custom", TickInterval: time.Minute}
	cfg.ApplyDefaults()
	require.Equal(t, "custom", cfg.Bucket)
	require.Equal(t, time.Minute, cfg.TickInterval)
}

func TestKVWatcher_ReplaysAndFollowsUpdates(t *testing.T) {
	_, nc := lvtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx := t.Context()
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "time-ctx", History: 1})
	require.NoError(t, err)

	// Values present before the watcher starts are applied by Start.
	require.NoError(t, PublishBounds(ctx, kv, types.Bounds{Start: 10, End: 20}))
	require.NoError(t, PublishTimeSystem(ctx, kv, types.TimeSystem{Key: "scet"}))

	tc := New(types.Bounds{}, types.TimeSystem{Key: "utc"})
	w := NewKVWatcher(js, Config{Bucket: "time-ctx"}, tc, logger.NewTest(t))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	require.Equal(t, types.Bounds{Start: 10, End: 20}, tc.Bounds())
	require.Equal(t, "scet", tc.TimeSystem().Key)
	require.Nil(t, tc.Clock())

	var mu sync.Mutex
	var ticks []bool
	tc.OnBounds(func(_ types.Bounds, tick bool) {
		mu.Lock()
		defer mu.Unlock()
		ticks = append(ticks, tick)
	})

	require.NoError(t, PublishBounds(ctx, kv, types.Bounds{Start: 30, End: 40}))
	require.Eventually(t, func() bool {
		return tc.Bounds() == types.Bounds{Start: 30, End: 40}
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.Equal(t, []bool{false}, ticks, "KV bounds are window redefinitions")
	mu.Unlock()

	require.NoError(t, PublishClock(ctx, kv, "local"))
	require.Eventually(t, func() bool {
		c := tc.Clock()
		return c != nil && c.Key() == "local"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, PublishClock(ctx, kv, ""))
	require.Eventually(t, func() bool { return tc.Clock() == nil }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, PublishTimeSystem(ctx, kv, types.TimeSystem{Key: "ert"}))
	require.Eventually(t, func() bool { return tc.TimeSystem().Key == "ert" }, 2*time.Second, 10*time.Millisecond)
}

func TestKVWatcher_RestartSkipsAppliedRevisions(t *testing.T) {
	_, nc := lvtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx := t.Context()
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "time-restart", History: 1})
	require.NoError(t, err)
	require.NoError(t, PublishBounds(ctx, kv, types.Bounds{Start: 10, End: 20}))
	require.NoError(t, PublishTimeSystem(ctx, kv, types.TimeSystem{Key: "scet"}))
	require.NoError(t, PublishClock(ctx, kv, "local"))

	tc := New(types.Bounds{}, types.TimeSystem{Key: "utc"})
	w := NewKVWatcher(js, Config{Bucket: "time-restart"}, tc, logger.NewTest(t))
	require.NoError(t, w.Start(ctx))
	w.Stop()

	var bounds []types.Bounds
	var clocks, systems int
	tc.OnBounds(func(b types.Bounds, _ bool) { bounds = append(bounds, b) })
	tc.OnClock(func(types.Clock) { clocks++ })
	tc.OnTimeSystem(func(types.TimeSystem) { systems++ })

	// A restarted watch replays every key; nothing has changed yet.
	watcher, err := kv.WatchAll(ctx)
	require.NoError(t, err)
	require.NoError(t, w.replay(ctx, watcher))
	require.NoError(t, watcher.Stop())
	require.Empty(t, bounds)
	require.Zero(t, clocks)
	require.Zero(t, systems)

	// Only keys written while the watch was down are applied.
	require.NoError(t, PublishBounds(ctx, kv, types.Bounds{Start: 50, End: 60}))
	watcher, err = kv.WatchAll(ctx)
	require.NoError(t, err)
	require.NoError(t, w.replay(ctx, watcher))
	require.NoError(t, watcher.Stop())
	require.Equal(t, []types.Bounds{{Start: 50, End: 60}}, bounds)
	require.Zero(t, clocks)
	require.Zero(t, systems)
}

func TestKVWatcher_IgnoresInvalidEntries(t *testing.T) {
	_, nc := lvtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx := t.Context()
	tc := New(types.Bounds{Start: 1, End: 2}, types.TimeSystem{Key: "utc"})
	w := NewKVWatcher(js, Config{Bucket: "time-invalid"}, tc, nil)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	kv, err := js.KeyValue(ctx, "time-invalid")
	require.NoError(t, err)

	_, err = kv.Put(ctx, KeyBounds, []byte("not json"))
	require.NoError(t, err)
	_, err = kv.Put(ctx, KeyBounds, []byte(`{"start":50,"end":10}`))
	require.NoError(t, err)
	_, err = kv.Put(ctx, "unrelated", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, PublishBounds(ctx, kv, types.Bounds{Start: 3, End: 4}))

	require.Eventually(t, func() bool {
		return tc.Bounds() == types.Bounds{Start: 3, End: 4}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKVWatcher_StartStopIdempotent(t *testing.T) {
	_, nc := lvtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	tc := New(types.Bounds{}, types.TimeSystem{Key: "utc"})
	w := NewKVWatcher(js, Config{Bucket: "time-idem"}, tc, nil)

	w.Stop()
	require.NoError(t, w.Start(t.Context()))
	require.NoError(t, w.Start(t.Context()))
	w.Stop()
	w.Stop()
}

func TestPublishBounds_RejectsInvalid(t *testing.T) {
	_, nc := lvtest.StartEmbeddedNATS(t)
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{Bucket: "time-pub"})
	require.NoError(t, err)

	require.ErrorIs(t, PublishBounds(t.Context(), kv, types.Bounds{Start: 2, End: 1}), types.ErrInvalidBounds)
	require.NoError(t, PublishClock(t.Context(), kv, ""), "deleting an absent clock is fine")
}
