package timectx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/lastvalue/internal/backoff"
	"github.com/arloliu/lastvalue/internal/kvutil"
	"github.com/arloliu/lastvalue/internal/logging"
	"github.com/arloliu/lastvalue/types"
)

// Keys mirrored by KVWatcher.
const (
	KeyBounds     = "bounds"
	KeyClock      = "clock"
	KeyTimeSystem = "timesystem"
)

// Config configures a KV-driven time context.
type Config struct {
	// Bucket is the JetStream KV bucket holding the shared time context.
	Bucket string `yaml:"bucket"`

	// TickInterval is how often a followed clock advances the bounds.
	TickInterval time.Duration `yaml:"tickInterval"`

	// RestartBackoffBase is the first delay before a failed watcher is restarted.
	RestartBackoffBase time.Duration `yaml:"restartBackoffBase"`

	// RestartBackoffCap bounds the delay between watcher restarts.
	RestartBackoffCap time.Duration `yaml:"restartBackoffCap"`
}

// DefaultConfig returns the default time context configuration.
func DefaultConfig() Config {
	return Config{
		Bucket:             "lastvalue-time",
		TickInterval:       time.Second,
		RestartBackoffBase: 100 * time.Millisecond,
		RestartBackoffCap:  5 * time.Second,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Bucket == "" {
		c.Bucket = d.Bucket
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.RestartBackoffBase <= 0 {
		c.RestartBackoffBase = d.RestartBackoffBase
	}
	if c.RestartBackoffCap <= 0 {
		c.RestartBackoffCap = d.RestartBackoffCap
	}
}

// clockRecord is the KV representation of an attached clock.
type clockRecord struct {
	Key string `json:"key"`
}

// KVWatcher mirrors a KV bucket into a Context.
//
// Writes to "bounds" are applied as window redefinitions (tick=false). A "clock"
// entry attaches a LocalClock with the stored key; deleting it detaches the
// clock. "timesystem" switches the active time system. Unknown keys are ignored.
type KVWatcher struct {
	js     jetstream.JetStream
	cfg    Config
	tc     *Context
	logger types.Logger

	mu      sync.Mutex
	kv      jetstream.KeyValue
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	// applied holds the last revision applied per key. Restarted watches
	// replay the bucket and entries at or below it are skipped.
	applied map[string]uint64
}

// NewKVWatcher creates a watcher for cfg.Bucket driving tc.
//
// Parameters:
//   - js: JetStream context
//   - cfg: Bucket and restart settings (defaults applied)
//   - tc: Context to drive
//   - logger: Optional logger, nil for no logging
//
// Returns:
//   - *KVWatcher: A stopped watcher
func NewKVWatcher(js jetstream.JetStream, cfg Config, tc *Context, logger types.Logger) *KVWatcher {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}

	return &KVWatcher{js: js, cfg: cfg, tc: tc, logger: logger, applied: make(map[string]uint64)}
}

// Start ensures the bucket exists, applies its current values and keeps watching
// it in the background until Stop is called. ctx only bounds the startup.
//
// Returns:
//   - error: Bucket or initial watch failure
func (w *KVWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, w.js, jetstream.KeyValueConfig{
		Bucket:  w.cfg.Bucket,
		History: 1,
	}, 3)
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	watcher, err := kv.WatchAll(watchCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %w", types.ErrWatcherFailed, err)
	}

	// Replay existing values before returning so callers observe a populated context.
	if err := w.replay(ctx, watcher); err != nil {
		_ = watcher.Stop()
		cancel()

		return err
	}

	w.kv = kv
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.run(watchCtx, watcher)

	w.logger.Info("time context watcher started", "bucket", w.cfg.Bucket)

	return nil
}

// Stop stops the background watcher and waits for it to exit.
func (w *KVWatcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.started = false
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("time context watcher stopped", "bucket", w.cfg.Bucket)
}

// replay applies entries until the initial-values marker.
func (w *KVWatcher) replay(ctx context.Context, watcher jetstream.KeyWatcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-watcher.Updates():
			if !ok {
				return fmt.Errorf("%w: updates closed during replay", types.ErrWatcherFailed)
			}
			if entry == nil {
				return nil
			}
			w.apply(entry)
		}
	}
}

func (w *KVWatcher) run(ctx context.Context, watcher jetstream.KeyWatcher) {
	defer close(w.done)

	bo := backoff.NewJitter(w.cfg.RestartBackoffBase, 2.0, w.cfg.RestartBackoffCap, 0)
	for {
		w.consume(ctx, watcher)
		_ = watcher.Stop()

		// Restart until a watch succeeds or we are stopped.
		for {
			if ctx.Err() != nil {
				return
			}

			delay := bo.Next()
			w.logger.Warn("time context watcher interrupted, restarting", "bucket", w.cfg.Bucket, "delay", delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			next, err := w.kv.WatchAll(ctx)
			if err != nil {
				w.logger.Error("failed to restart time context watcher", "bucket", w.cfg.Bucket, "error", err)
				continue
			}
			watcher = next
			bo.Reset()

			break
		}
	}
}

// consume applies updates until the watcher closes or ctx is cancelled.
func (w *KVWatcher) consume(ctx context.Context, watcher jetstream.KeyWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				return
			}
			if entry == nil {
				continue
			}
			w.apply(entry)
		}
	}
}

func (w *KVWatcher) apply(entry jetstream.KeyValueEntry) {
	rev := entry.Revision()
	if rev <= w.applied[entry.Key()] {
		return
	}
	w.applied[entry.Key()] = rev

	deleted := entry.Operation() != jetstream.KeyValuePut
	w.logger.Debug("time context entry", "key", entry.Key(), "operation", entry.Operation(), "revision", entry.Revision())

	var err error
	switch entry.Key() {
	case KeyBounds:
		if deleted {
			return
		}
		var b types.Bounds
		if err = json.Unmarshal(entry.Value(), &b); err == nil {
			err = w.tc.SetBounds(b)
		}
	case KeyClock:
		if deleted {
			w.tc.SetClock(nil)
			return
		}
		var rec clockRecord
		if err = json.Unmarshal(entry.Value(), &rec); err == nil {
			w.applyClock(rec)
		}
	case KeyTimeSystem:
		if deleted {
			return
		}
		var ts types.TimeSystem
		if err = json.Unmarshal(entry.Value(), &ts); err == nil {
			err = w.tc.SetTimeSystem(ts)
		}
	default:
		return
	}

	if err != nil {
		w.logger.Warn("ignoring invalid time context entry", "key", entry.Key(), "error", err)
	}
}

func (w *KVWatcher) applyClock(rec clockRecord) {
	if rec.Key == "" {
		w.tc.SetClock(nil)
		return
	}
	if current := w.tc.Clock(); current != nil && current.Key() == rec.Key {
		return
	}
	w.tc.SetClock(NewLocalClock(rec.Key))
}

// PublishBounds stores a window redefinition in kv.
func PublishBounds(ctx context.Context, kv jetstream.KeyValue, b types.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}

	return put(ctx, kv, KeyBounds, b)
}

// PublishClock attaches a clock identified by key; an empty key detaches it.
func PublishClock(ctx context.Context, kv jetstream.KeyValue, key string) error {
	if key == "" {
		err := kv.Delete(ctx, KeyClock)
		if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return err
		}

		return nil
	}

	return put(ctx, kv, KeyClock, clockRecord{Key: key})
}

// PublishTimeSystem switches the shared time system.
func PublishTimeSystem(ctx context.Context, kv jetstream.KeyValue, ts types.TimeSystem) error {
	return put(ctx, kv, KeyTimeSystem, ts)
}

func put(ctx context.Context, kv jetstream.KeyValue, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}
