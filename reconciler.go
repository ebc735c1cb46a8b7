package lastvalue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/lastvalue/internal/hooks"
	"github.com/arloliu/lastvalue/internal/logging"
	"github.com/arloliu/lastvalue/internal/metrics"
	"github.com/arloliu/lastvalue/internal/natsutil"
	"github.com/arloliu/lastvalue/internal/reconcile"
	"github.com/arloliu/lastvalue/types"
)

// Historical request results reported to metrics.
const (
	resultHit   = "hit"
	resultEmpty = "empty"
	resultError = "error"
)

// backlogWarnDepth is the arrival queue depth between backlog warnings.
const backlogWarnDepth = 1024

// Reconciler delivers the latest value of one entity to a callback.
//
// On Start it issues a one-shot historical request for the latest datum in the
// current bounds and opens a live subscription at the same time. Arrivals that
// race the historical request are coalesced into a single buffered candidate.
// Once the request settles, every delivered value is strictly newer than the
// previous one under the active time-key and, in Fixed mode, lies within the
// bounds. Time-key changes re-issue the historical request; clock changes switch
// between Fixed and Live filtering.
//
// All state changes and callback invocations are serialized: the callback is
// never called concurrently with itself, arrivals are handled in receipt order,
// and the callback may call Dispose. Arrivals are queued without limit while the
// callback runs, so a callback that blocks grows memory with the push rate; a
// warning is logged every backlogWarnDepth queued arrivals.
type Reconciler struct {
	id      string
	cfg     Config
	source  TelemetrySource
	timeCtx TimeContext
	formats FormatResolver
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger

	// serial orders every machine access.
	serial  reconcile.Serial
	machine *reconcile.Machine
	// begun is set by begin; handlers ignore changes until then. Serial-confined.
	begun bool

	state    atomic.Int32
	started  atomic.Bool
	disposed atomic.Bool

	mu        sync.Mutex
	entity    string
	cancelSub func()
	offs      []func()
	ctx       context.Context //nolint:containedctx // lifetime of in-flight requests
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewReconciler creates a reconciler. It does nothing until Start is called.
//
// Parameters:
//   - cfg: Configuration (defaults applied in place, then validated)
//   - src: Telemetry source for historical requests and live datums
//   - tc: Time context supplying bounds, clock and time system
//   - formats: Resolves time-keys to parsers
//   - opts: Optional logger, metrics and hooks
//
// Returns:
//   - *Reconciler: A reconciler ready to Start
//   - error: Missing collaborator or invalid configuration
//
// Example:
//
//	cfg := lastvalue.DefaultConfig()
//	r, err := lastvalue.NewReconciler(&cfg, src, tc, format.Default())
//	if err != nil { /* handle */ }
//	dispose, err := r.Start("sat-1", func(d lastvalue.Datum) { render(d) })
//	defer dispose()
func NewReconciler(cfg *Config, src TelemetrySource, tc TimeContext, formats FormatResolver, opts ...Option) (*Reconciler, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if src == nil {
		return nil, ErrTelemetrySourceRequired
	}
	if tc == nil {
		return nil, ErrTimeContextRequired
	}
	if formats == nil {
		return nil, ErrFormatResolverRequired
	}

	SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &reconcilerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance)

	r := &Reconciler{
		id:      uuid.NewString(),
		cfg:     *cfg,
		source:  src,
		timeCtx: tc,
		formats: formats,
		hooks:   hooks.Fill(options.hooks),
		metrics: metricsCollector,
		logger:  loggerInstance,
	}
	r.state.Store(int32(StateAwaitingLAD))

	return r, nil
}

// Subscribe creates a reconciler for entity and starts it.
//
// It is a shorthand for NewReconciler followed by Start; the returned function
// disposes the reconciler.
func Subscribe(cfg *Config, src TelemetrySource, tc TimeContext, formats FormatResolver,
	entity string, cb Callback, opts ...Option,
) (DisposeFunc, error) {
	r, err := NewReconciler(cfg, src, tc, formats, opts...)
	if err != nil {
		return nil, err
	}

	return r.Start(entity, cb)
}

// Start begins reconciling entity and delivering accepted values to cb.
//
// The time context's change handlers are registered and the live subscription
// is opened. The historical request is then issued in the background for the
// bounds, mode and time-key in effect at that point. Start does not wait for
// any value.
//
// Parameters:
//   - entity: Entity identifier
//   - cb: Receives accepted values, one at a time
//
// Returns:
//   - DisposeFunc: Equivalent to Dispose
//   - error: ErrEntityRequired, ErrCallbackRequired, ErrAlreadyStarted, ErrDisposed,
//     or ErrSubscribeFailed wrapping the source's error
func (r *Reconciler) Start(entity string, cb Callback) (DisposeFunc, error) {
	if entity == "" {
		return nil, ErrEntityRequired
	}
	if cb == nil {
		return nil, ErrCallbackRequired
	}
	if r.disposed.Load() {
		return nil, ErrDisposed
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	bounds := r.timeCtx.Bounds()
	mode := types.ModeFor(r.timeCtx.Clock())
	timeKey := r.timeCtx.TimeSystem().Key

	machine := reconcile.New(reconcile.Config{
		Entity:       entity,
		TimeKey:      timeKey,
		Bounds:       bounds,
		Mode:         mode,
		Policy:       r.cfg.BoundsChangePolicy,
		Resolver:     r.formats,
		Emit:         r.deliverTo(cb),
		OnTransition: r.onTransition,
		Logger:       r.logger,
		Metrics:      r.metrics,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if !r.track(func(rr *Reconciler) {
		rr.entity = entity
		rr.machine = machine
		rr.ctx = ctx
		rr.cancel = cancel
	}) {
		cancel()
		return nil, ErrDisposed
	}

	r.logger.Info("reconciler starting",
		"reconciler_id", r.id,
		"entity", entity,
		"bounds", bounds,
		"mode", mode,
		"time_key", timeKey,
	)

	offs := []func(){
		r.timeCtx.OnBounds(func(b Bounds, tick bool) {
			r.serial.Do(func() { r.handleBounds(b, tick) })
		}),
		r.timeCtx.OnClock(func(c Clock) {
			r.serial.Do(func() { r.handleClock(c) })
		}),
		r.timeCtx.OnTimeSystem(func(ts TimeSystem) {
			r.serial.Do(func() { r.handleTimeSystem(ts) })
		}),
	}
	if !r.track(func(rr *Reconciler) { rr.offs = append(rr.offs, offs...) }) {
		for _, off := range offs {
			off()
		}

		return r.Dispose, nil
	}

	cancelSub, err := r.source.Subscribe(entity, func(d Datum) {
		r.serial.Do(func() {
			if r.disposed.Load() {
				return
			}
			r.machine.Arrive(d)
		})
		if n := r.serial.Pending(); n > 0 && n%backlogWarnDepth == 0 {
			r.logger.Warn("arrival backlog growing, callback is slow", "reconciler_id", r.id, "entity", entity, "pending", n)
		}
	})
	if err != nil {
		r.logger.Error("subscription failed", "reconciler_id", r.id, "entity", entity, "error", err)
		r.Dispose()

		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if !r.track(func(rr *Reconciler) { rr.cancelSub = cancelSub }) {
		cancelSub()
		return r.Dispose, nil
	}

	r.metrics.RecordActiveReconcilers(1)
	r.serial.Do(r.begin)

	return r.Dispose, nil
}

// Dispose stops the reconciler. No callback runs after Dispose returns, except
// one already executing on another goroutine. The subscription is cancelled, the
// time context handlers are removed and any in-flight historical request is
// cancelled and its result discarded. Dispose is idempotent and may be called
// from the callback.
func (r *Reconciler) Dispose() {
	r.mu.Lock()
	if r.disposed.Swap(true) {
		r.mu.Unlock()
		return
	}
	cancelSub := r.cancelSub
	offs := r.offs
	cancel := r.cancel
	machine := r.machine
	entity := r.entity
	active := cancelSub != nil
	r.cancelSub = nil
	r.offs = nil
	r.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if cancelSub != nil {
		cancelSub()
	}
	if cancel != nil {
		cancel()
	}
	if active {
		r.metrics.RecordActiveReconcilers(-1)
	}

	// Published before the machine transition, which may wait behind queued work.
	r.state.Store(int32(StateDisposed))
	if machine != nil {
		r.serial.Do(machine.Dispose)
	}

	r.logger.Info("reconciler disposed", "reconciler_id", r.id, "entity", entity)
}

// Wait blocks until in-flight historical requests have returned. Call it after
// Dispose.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Shutdown disposes the reconciler and waits for in-flight historical requests,
// bounded by ctx and Config.ShutdownTimeout.
//
// Returns:
//   - error: Context error if requests did not return in time
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.Dispose()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}

// State returns the current reconciliation state.
func (r *Reconciler) State() State {
	return State(r.state.Load())
}

// ID returns the unique identifier of this reconciler, used in logs.
func (r *Reconciler) ID() string {
	return r.id
}

// Entity returns the entity passed to Start, or "" before Start.
func (r *Reconciler) Entity() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.entity
}

// track applies fn under the lifecycle lock unless the reconciler is disposed.
func (r *Reconciler) track(fn func(*Reconciler)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed.Load() {
		return false
	}
	fn(r)

	return true
}

// deliverTo wraps cb so nothing is delivered once disposal has begun.
func (r *Reconciler) deliverTo(cb Callback) func(Datum) {
	return func(d Datum) {
		if r.disposed.Load() {
			return
		}
		cb(d)
	}
}

// begin issues the initial historical request. The time context is read again
// here because changes published between the Start snapshot and handler
// registration reach no handler.
func (r *Reconciler) begin() {
	if r.disposed.Load() {
		return
	}

	m := r.machine
	m.SetMode(types.ModeFor(r.timeCtx.Clock()))
	if key := r.timeCtx.TimeSystem().Key; key != m.TimeKey() {
		m.ChangeTimeKey(key)
	}
	if b := r.timeCtx.Bounds(); b != m.Bounds() {
		// Nothing has been requested yet, so this only moves the window.
		m.SetBounds(b, true)
	}
	r.begun = true

	r.issue(m.Begin(), m.Bounds(), m.TimeKey())
}

func (r *Reconciler) handleBounds(b Bounds, tick bool) {
	if r.disposed.Load() || !r.begun {
		return
	}

	gen, refetch := r.machine.SetBounds(b, tick)
	if refetch {
		r.issue(gen, b, r.machine.TimeKey())
	}
}

func (r *Reconciler) handleClock(c Clock) {
	if r.disposed.Load() || !r.begun {
		return
	}

	r.machine.SetMode(types.ModeFor(c))
}

func (r *Reconciler) handleTimeSystem(ts TimeSystem) {
	if r.disposed.Load() || !r.begun || ts.Key == r.machine.TimeKey() {
		return
	}

	gen := r.machine.ChangeTimeKey(ts.Key)
	r.issue(gen, r.machine.Bounds(), ts.Key)
}

// issue runs the historical request for gen on a tracked goroutine. The result is
// handed back to the machine through the serial queue.
func (r *Reconciler) issue(gen uint64, bounds Bounds, timeKey string) {
	r.mu.Lock()
	if r.disposed.Load() {
		r.mu.Unlock()
		return
	}
	parent := r.ctx
	entity := r.entity
	r.wg.Add(1)
	r.mu.Unlock()

	opts := RequestOptions{
		Bounds:   bounds,
		TimeKey:  timeKey,
		Strategy: r.cfg.RequestStrategy,
		Size:     1,
	}

	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(parent, r.cfg.RequestTimeout)
		defer cancel()

		start := time.Now()
		data, err := r.source.Request(ctx, entity, opts)
		elapsed := time.Since(start).Seconds()

		switch {
		case err != nil:
			r.metrics.RecordHistoricalRequest(resultError, elapsed)
			if !r.disposed.Load() {
				r.logRequestError(entity, gen, err)
				r.fireError(entity, err)
			}
		case len(data) == 0:
			r.metrics.RecordHistoricalRequest(resultEmpty, elapsed)
		default:
			r.metrics.RecordHistoricalRequest(resultHit, elapsed)
		}

		r.serial.Do(func() {
			if r.disposed.Load() {
				r.metrics.RecordHistoricalDiscarded(reconcile.DiscardDisposed)
				return
			}
			r.machine.ResolveHistorical(gen, data, err)
		})
	}()
}

func (r *Reconciler) logRequestError(entity string, gen uint64, err error) {
	kv := []any{"reconciler_id", r.id, "entity", entity, "token", gen, "error", err}
	if natsutil.IsConnectivityError(err) {
		r.logger.Warn("historical request failed (connectivity), continuing with live values", kv...)
		return
	}
	r.logger.Warn("historical request failed, continuing with live values", kv...)
}

// onTransition mirrors machine state and runs the state hook asynchronously.
func (r *Reconciler) onTransition(from, to State) {
	for {
		cur := r.state.Load()
		if State(cur) == StateDisposed {
			break
		}
		if r.state.CompareAndSwap(cur, int32(to)) { //nolint:gosec // State values are a bounded enum
			break
		}
	}

	entity := r.machine.Entity()
	go func() {
		if err := r.hooks.OnStateChanged(r.hookContext(), entity, from, to); err != nil {
			r.logger.Error("state change hook error",
				"reconciler_id", r.id, "entity", entity, "from", from, "to", to, "error", err)
		}
	}()
}

func (r *Reconciler) fireError(entity string, err error) {
	go func() {
		if hookErr := r.hooks.OnError(r.hookContext(), entity, err); hookErr != nil {
			r.logger.Error("error hook error", "reconciler_id", r.id, "entity", entity, "error", hookErr)
		}
	}()
}

// hookContext carries request-scoped values but survives disposal, so hooks
// observing the final transition are not cancelled.
func (r *Reconciler) hookContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil {
		return context.Background()
	}

	return context.WithoutCancel(r.ctx)
}
