package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/lastvalue/types"
)

type subscriber struct {
	entity  string
	onDatum func(types.Datum)
}

// Memory is an in-process telemetry source.
//
// Published datums are appended to a per-entity history and delivered to the
// entity's subscribers synchronously on the publishing goroutine. Historical
// requests return the newest datum inside the requested bounds, judged with the
// format resolver; without a resolver or a parser for the time-key the newest
// datum is returned.
type Memory struct {
	mu       sync.RWMutex
	history  map[string][]types.Datum
	resolver types.FormatResolver

	subscribers *xsync.Map[uint64, subscriber]
	nextID      atomic.Uint64

	requests      atomic.Int64
	subscriptions atomic.Int64

	errMu        sync.RWMutex
	requestErr   error
	subscribeErr error

	opts sourceOptions
}

// Compile-time assertion that Memory implements TelemetrySource.
var _ types.TelemetrySource = (*Memory)(nil)

// NewMemory creates an empty in-memory source.
//
// Parameters:
//   - resolver: Used for window-aware lookups, may be nil
//   - opts: Optional logger and metrics
//
// Returns:
//   - *Memory: Initialized source
//
// Example:
//
//	src := source.NewMemory(format.Default())
//	src.Publish("sat-1", types.Datum{"utc": 1700000000000, "value": 3.2})
func NewMemory(resolver types.FormatResolver, opts ...Option) *Memory {
	return &Memory{
		history:     make(map[string][]types.Datum),
		resolver:    resolver,
		subscribers: xsync.NewMap[uint64, subscriber](),
		opts:        applyOptions(opts),
	}
}

// Store appends d to the entity history without notifying subscribers.
func (m *Memory) Store(entity string, d types.Datum) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[entity] = append(m.history[entity], d)
}

// Publish stores d and delivers it to the entity's subscribers.
func (m *Memory) Publish(entity string, d types.Datum) {
	m.Store(entity, d)
	m.Deliver(entity, d)
}

// Deliver sends d to the entity's subscribers without storing it.
func (m *Memory) Deliver(entity string, d types.Datum) {
	m.subscribers.Range(func(_ uint64, sub subscriber) bool {
		if sub.entity == entity {
			m.opts.metrics.RecordSourceDelivery()
			sub.onDatum(d)
		}

		return true
	})
}

// Request returns the newest stored datum for entity within opts.Bounds.
//
// Returns:
//   - []types.Datum: Zero or one datum
//   - error: The configured request error, or ctx's error
func (m *Memory) Request(ctx context.Context, entity string, opts types.RequestOptions) ([]types.Datum, error) {
	m.requests.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.errMu.RLock()
	reqErr := m.requestErr
	m.errMu.RUnlock()
	if reqErr != nil {
		return nil, reqErr
	}

	m.mu.RLock()
	history := m.history[entity]
	m.mu.RUnlock()

	inspected := 0
	defer func() { m.opts.metrics.RecordSourceScan(inspected) }()

	for i := len(history) - 1; i >= 0; i-- {
		inspected++
		if inWindow(m.resolver, opts, history[i]) {
			return []types.Datum{history[i]}, nil
		}
	}

	return nil, nil
}

// Subscribe registers onDatum for entity's live datums.
func (m *Memory) Subscribe(entity string, onDatum func(types.Datum)) (func(), error) {
	m.errMu.RLock()
	subErr := m.subscribeErr
	m.errMu.RUnlock()
	if subErr != nil {
		return nil, subErr
	}

	id := m.nextID.Add(1)
	m.subscribers.Store(id, subscriber{entity: entity, onDatum: onDatum})
	m.subscriptions.Add(1)
	m.opts.logger.Debug("memory subscription opened", "entity", entity, "id", id)

	var once sync.Once

	return func() {
		once.Do(func() {
			m.subscribers.Delete(id)
			m.opts.logger.Debug("memory subscription closed", "entity", entity, "id", id)
		})
	}, nil
}

// SetRequestError makes subsequent requests fail with err (nil restores success).
func (m *Memory) SetRequestError(err error) {
	m.errMu.Lock()
	defer m.errMu.Unlock()

	m.requestErr = err
}

// SetSubscribeError makes subsequent subscriptions fail with err (nil restores success).
func (m *Memory) SetSubscribeError(err error) {
	m.errMu.Lock()
	defer m.errMu.Unlock()

	m.subscribeErr = err
}

// Requests returns the number of historical requests received.
func (m *Memory) Requests() int {
	return int(m.requests.Load())
}

// Subscriptions returns the number of successful Subscribe calls.
func (m *Memory) Subscriptions() int {
	return int(m.subscriptions.Load())
}

// ActiveSubscriptions returns the number of subscriptions not yet cancelled.
func (m *Memory) ActiveSubscriptions() int {
	return m.subscribers.Size()
}
