package source

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/lastvalue/format"
	"github.com/arloliu/lastvalue/internal/logger"
	lvtest "github.com/arloliu/lastvalue/testing"
	"github.com/arloliu/lastvalue/types"
)

func newTestNATS(t *testing.T, cfg NATSConfig) *NATS {
	t.Helper()

	_, nc := lvtest.StartEmbeddedNATS(t)
	cfg.Storage = StorageMemory
	src, err := NewNATS(t.Context(), nc, cfg, format.Default(), WithLogger(logger.NewTest(t)))
	require.NoError(t, err)

	return src
}

func TestNATSConfig_Defaults(t *testing.T) {
	var cfg NATSConfig
	cfg.ApplyDefaults()
	require.Equal(t, DefaultNATSConfig(), cfg)
	require.NoError(t, cfg.Validate())

	bad := DefaultNATSConfig()
	bad.SubjectPrefix = "telemetry.>"
	require.Error(t, bad.Validate())

	bad = DefaultNATSConfig()
	bad.Storage = "tape"
	require.Error(t, bad.Validate())
}

func TestNewNATS_RequiresConnection(t *testing.T) {
	_, err := NewNATS(context.Background(), nil, NATSConfig{}, nil)
	require.Error(t, err)
}

func TestNATS_RequestLatest(t *testing.T) {
	src := newTestNATS(t, NATSConfig{SubjectPrefix: "tlm", StreamName: "TLM"})
	ctx := t.Context()

	got, err := src.Request(ctx, "sat-1", latest(types.Bounds{Start: 0, End: 100}))
	require.NoError(t, err)
	require.Empty(t, got, "no datums stored yet")

	require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 10, "v": "a"}))
	require.NoError(t, src.Publish(ctx, "sat-2", types.Datum{"utc": 40, "v": "other"}))
	require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 50, "v": "b"}))
	require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 150, "v": "c"}))

	got, err = src.Request(ctx, "sat-1", latest(types.Bounds{Start: 0, End: 1000}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "c", got[0]["v"])
	require.InDelta(t, 150.0, got[0]["utc"], 0, "JSON numbers decode as float64")

	got, err = src.Request(ctx, "sat-1", latest(types.Bounds{Start: 0, End: 100}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0]["v"], "scan skips other subjects and out-of-bounds datums")

	got, err = src.Request(ctx, "sat-1", latest(types.Bounds{Start: 500, End: 600}))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNATS_RequestScanLimit(t *testing.T) {
	src := newTestNATS(t, NATSConfig{SubjectPrefix: "lim", StreamName: "LIM", MaxScan: 3})
	ctx := t.Context()

	require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 1}))
	for i := range 5 {
		require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 1000 + i}))
	}

	got, err := src.Request(ctx, "sat-1", latest(types.Bounds{Start: 0, End: 10}))
	require.NoError(t, err)
	require.Empty(t, got, "in-bounds datum is beyond the scan limit")
}

func TestNATS_RequestScanCountsOtherEntities(t *testing.T) {
	publish := func(t *testing.T, src *NATS) {
		t.Helper()

		ctx := t.Context()
		require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 5}))
		for i := range 4 {
			require.NoError(t, src.Publish(ctx, "sat-2", types.Datum{"utc": 100 + i}))
		}
		require.NoError(t, src.Publish(ctx, "sat-1", types.Datum{"utc": 1000}))
	}

	t.Run("limit below interleaved traffic", func(t *testing.T) {
		src := newTestNATS(t, NATSConfig{SubjectPrefix: "mix", StreamName: "MIX", MaxScan: 4})
		publish(t, src)

		got, err := src.Request(t.Context(), "sat-1", latest(types.Bounds{Start: 0, End: 10}))
		require.NoError(t, err)
		require.Empty(t, got, "the scan stops among sat-2 messages")
	})

	t.Run("limit covering interleaved traffic", func(t *testing.T) {
		src := newTestNATS(t, NATSConfig{SubjectPrefix: "mix", StreamName: "MIX", MaxScan: 6})
		publish(t, src)

		got, err := src.Request(t.Context(), "sat-1", latest(types.Bounds{Start: 0, End: 10}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.InDelta(t, 5.0, got[0]["utc"], 0)
	})
}

func TestNATS_SubscribeOrderAndCancel(t *testing.T) {
	src := newTestNATS(t, NATSConfig{SubjectPrefix: "sub", StreamName: "SUB"})
	ctx := t.Context()

	var mu sync.Mutex
	var got []float64
	cancel, err := src.Subscribe("sat.1", func(d types.Datum) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, d["utc"].(float64))
	})
	require.NoError(t, err)
	require.NoError(t, src.nc.Flush())

	for i := range 20 {
		require.NoError(t, src.Publish(ctx, "sat.1", types.Datum{"utc": i}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 20
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	for i, v := range got {
		require.InDelta(t, float64(i), v, 0, "arrival order preserved")
	}
	mu.Unlock()

	cancel()
	cancel()
	require.NoError(t, src.Publish(ctx, "sat.1", types.Datum{"utc": 99}))
	require.NoError(t, src.nc.Flush())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 20)
}

func TestNATS_DropsUndecodablePayloads(t *testing.T) {
	src := newTestNATS(t, NATSConfig{SubjectPrefix: "bad", StreamName: "BAD"})

	var mu sync.Mutex
	var got []types.Datum
	cancel, err := src.Subscribe("sat-1", func(d types.Datum) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, d)
	})
	require.NoError(t, err)
	defer cancel()

	subject := src.Subject("sat-1")
	require.NoError(t, src.nc.Publish(subject, []byte("not json")))
	require.NoError(t, src.nc.Publish(subject, []byte("[1,2]")))
	require.NoError(t, src.nc.Publish(subject, []byte("null")))
	require.NoError(t, src.nc.Publish(subject, []byte(fmt.Sprintf(`{"utc":%d}`, 7))))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNATS_SubjectUsesToken(t *testing.T) {
	src := newTestNATS(t, NATSConfig{SubjectPrefix: "tok", StreamName: "TOK"})

	require.Equal(t, "tok.sat-1", src.Subject("sat-1"))
	require.NotEqual(t, "tok.sat.1", src.Subject("sat.1"))
}
