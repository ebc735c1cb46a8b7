package reconcile

import (
	"github.com/arloliu/lastvalue/internal/logging"
	"github.com/arloliu/lastvalue/internal/metrics"
	"github.com/arloliu/lastvalue/types"
)

// Emission origins reported to metrics.
const (
	OriginHistorical = "historical"
	OriginPush       = "push"
	OriginCandidate  = "candidate"
)

// Rejection reasons reported to metrics.
const (
	ReasonOutOfBounds = "out_of_bounds"
	ReasonOutOfOrder  = "out_of_order"
)

// Candidate decisions and discard reasons reported to metrics.
const (
	CandidateReplaced = "replaced"
	CandidateRetained = "retained"

	DiscardDisposed   = "disposed"
	DiscardSuperseded = "superseded"
)

// Config holds the initial snapshot and collaborators of a Machine.
type Config struct {
	Entity   string
	TimeKey  string
	Bounds   types.Bounds
	Mode     types.Mode
	Policy   types.BoundsChangePolicy
	Resolver types.FormatResolver

	// Emit receives accepted values. Required.
	Emit func(d types.Datum)

	// OnTransition observes state changes. Optional.
	OnTransition func(from, to types.State)

	Logger  types.Logger
	Metrics types.ReconcilerMetrics
}

// sample is a datum together with its Instant under the active time-key.
type sample struct {
	datum   types.Datum
	instant types.Instant
	ok      bool
}

// Machine is the reconciliation state machine for a single entity.
type Machine struct {
	entity   string
	timeKey  string
	parser   types.Parser
	resolver types.FormatResolver
	bounds   types.Bounds
	mode     types.Mode
	policy   types.BoundsChangePolicy
	state    types.State

	// gen identifies the only historical request whose result is actionable.
	gen uint64

	baseline     *sample
	candidate    types.Datum
	hasCandidate bool

	emit         func(types.Datum)
	onTransition func(from, to types.State)
	logger       types.Logger
	metrics      types.ReconcilerMetrics
}

// New creates a Machine in StateAwaitingLAD.
//
// The caller must obtain a request token with Begin and issue the historical
// request for Bounds() itself.
//
// Parameters:
//   - cfg: Initial snapshot and collaborators
//
// Returns:
//   - *Machine: A new machine awaiting its first historical result
func New(cfg Config) *Machine {
	policy := cfg.Policy
	if !policy.Valid() {
		policy = types.BoundsRefetch
	}

	m := &Machine{
		entity:       cfg.Entity,
		resolver:     cfg.Resolver,
		bounds:       cfg.Bounds,
		mode:         cfg.Mode,
		policy:       policy,
		state:        types.StateAwaitingLAD,
		emit:         cfg.Emit,
		onTransition: cfg.OnTransition,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.metrics == nil {
		m.metrics = metrics.NewNop()
	}
	if m.emit == nil {
		m.emit = func(types.Datum) {}
	}
	m.useTimeKey(cfg.TimeKey)

	return m
}

// Begin returns the token of the initial historical request.
func (m *Machine) Begin() uint64 {
	m.gen++
	return m.gen
}

// Entity returns the entity being reconciled.
func (m *Machine) Entity() string { return m.entity }

// State returns the current state.
func (m *Machine) State() types.State { return m.state }

// Bounds returns the current window.
func (m *Machine) Bounds() types.Bounds { return m.bounds }

// Mode returns the current filtering mode.
func (m *Machine) Mode() types.Mode { return m.mode }

// TimeKey returns the active time-key.
func (m *Machine) TimeKey() string { return m.timeKey }

// Generation returns the token of the actionable historical request.
func (m *Machine) Generation() uint64 { return m.gen }

// Baseline returns the last emitted datum and its Instant under the active time-key.
func (m *Machine) Baseline() (d types.Datum, instant types.Instant, parsed bool, exists bool) {
	if m.baseline == nil {
		return nil, 0, false, false
	}

	return m.baseline.datum, m.baseline.instant, m.baseline.ok, true
}

// Candidate returns the buffered push arrival, if any.
func (m *Machine) Candidate() (types.Datum, bool) {
	return m.candidate, m.hasCandidate
}

// ResolveHistorical settles the historical request identified by gen.
//
// Success with data, success without data and failure are handled alike except
// for whether a datum is present; err is only logged. Results for a stale token or
// arriving after disposal are discarded.
//
// Parameters:
//   - gen: Token returned by Begin, ChangeTimeKey or SetBounds
//   - data: Zero or more datums; the last one is the most recent
//   - err: Request failure, folded into "no datum"
//
// Returns:
//   - bool: true if the result was applied
func (m *Machine) ResolveHistorical(gen uint64, data []types.Datum, err error) bool {
	if m.state == types.StateDisposed {
		m.metrics.RecordHistoricalDiscarded(DiscardDisposed)
		return false
	}
	if gen != m.gen || m.state != types.StateAwaitingLAD {
		m.metrics.RecordHistoricalDiscarded(DiscardSuperseded)
		m.logger.Debug("discarding superseded historical result",
			"entity", m.entity, "token", gen, "current", m.gen)

		return false
	}

	if err != nil {
		m.logger.Debug("historical request failed, treating as empty",
			"entity", m.entity, "error", err)
		data = nil
	}

	m.transition(types.StateLADResolved)

	if len(data) > 0 {
		d := data[len(data)-1]
		instant, ok := m.parse(d)
		if m.outOfBounds(instant, ok) {
			m.reject(ReasonOutOfBounds, OriginHistorical, instant)
		} else {
			m.accept(d, instant, ok, OriginHistorical)
		}
	}

	if m.hasCandidate {
		d := m.candidate
		m.clearCandidate()
		m.evaluate(d, OriginCandidate)
	}

	return true
}

// Arrive handles one push arrival.
//
// While awaiting the historical result the arrival competes for the candidate
// slot; afterwards it is filtered and emitted directly.
func (m *Machine) Arrive(d types.Datum) {
	switch m.state {
	case types.StateAwaitingLAD:
		m.buffer(d)
	case types.StateLADResolved:
		m.evaluate(d, OriginPush)
	default:
	}
}

// ChangeTimeKey switches the active time-key.
//
// The baseline Instant is recomputed with the new parser (it becomes undefined when
// the new key cannot parse the baseline datum) and the machine returns to
// StateAwaitingLAD. The subscription and the candidate slot are unaffected.
//
// Returns:
//   - uint64: Token for the new historical request, 0 when disposed
func (m *Machine) ChangeTimeKey(timeKey string) uint64 {
	if m.state == types.StateDisposed {
		return 0
	}

	m.logger.Info("time key changed", "entity", m.entity, "from", m.timeKey, "to", timeKey)
	m.useTimeKey(timeKey)
	if m.baseline != nil {
		m.baseline.instant, m.baseline.ok = m.parse(m.baseline.datum)
	}

	m.transition(types.StateAwaitingLAD)
	m.gen++

	return m.gen
}

// SetMode switches between Fixed and Live filtering. It takes effect for the next
// arrival and for candidate evaluation; nothing is re-requested.
func (m *Machine) SetMode(mode types.Mode) {
	if m.state == types.StateDisposed || m.mode == mode {
		return
	}

	m.logger.Info("mode changed", "entity", m.entity, "from", m.mode, "to", mode)
	m.mode = mode
}

// SetBounds updates the window.
//
// Clock ticks only move the window. A redefinition (tick=false) under the
// BoundsRefetch policy also resets the candidate and baseline and returns to
// StateAwaitingLAD; the caller must then issue a historical request for the
// returned token.
//
// Returns:
//   - uint64: Token for the new historical request when refetch is true
//   - bool: refetch, true when a new historical request is required
func (m *Machine) SetBounds(b types.Bounds, tick bool) (uint64, bool) {
	if m.state == types.StateDisposed {
		return 0, false
	}

	m.bounds = b
	if tick || m.policy == types.BoundsRefilter {
		return 0, false
	}

	m.logger.Info("bounds redefined, refetching", "entity", m.entity, "bounds", b)
	m.baseline = nil
	m.clearCandidate()
	m.transition(types.StateAwaitingLAD)
	m.gen++

	return m.gen, true
}

// Dispose moves the machine to StateDisposed. Repeated calls are no-ops.
func (m *Machine) Dispose() {
	if m.state == types.StateDisposed {
		return
	}

	m.clearCandidate()
	m.baseline = nil
	m.transition(types.StateDisposed)
}

// buffer applies the candidate replacement rule while awaiting the historical result.
func (m *Machine) buffer(d types.Datum) {
	if m.mode == types.ModeFixed && m.hasCandidate {
		candInstant, candOK := m.parse(m.candidate)
		newInstant, newOK := m.parse(d)
		if !m.outOfBounds(candInstant, candOK) && m.outOfBounds(newInstant, newOK) {
			m.metrics.RecordCandidate(CandidateRetained)
			m.logger.Debug("keeping in-bounds candidate", "entity", m.entity, "arrival", newInstant)

			return
		}
	}

	m.candidate = d
	m.hasCandidate = true
	m.metrics.RecordCandidate(CandidateReplaced)
}

// evaluate filters a value against the window and the baseline and emits it.
func (m *Machine) evaluate(d types.Datum, origin string) {
	instant, ok := m.parse(d)
	if m.outOfBounds(instant, ok) {
		m.reject(ReasonOutOfBounds, origin, instant)
		return
	}
	if ok && m.baseline != nil && m.baseline.ok && instant <= m.baseline.instant {
		m.reject(ReasonOutOfOrder, origin, instant)
		return
	}

	m.accept(d, instant, ok, origin)
}

func (m *Machine) accept(d types.Datum, instant types.Instant, ok bool, origin string) {
	m.baseline = &sample{datum: d, instant: instant, ok: ok}
	m.metrics.RecordEmission(origin)
	m.emit(d)
}

func (m *Machine) reject(reason, origin string, instant types.Instant) {
	m.metrics.RecordRejection(reason)
	m.logger.Debug("value rejected",
		"entity", m.entity, "reason", reason, "origin", origin, "instant", instant, "bounds", m.bounds)
}

// outOfBounds reports whether a parsed Instant must be dropped by the window
// filter. Only Fixed mode filters; unparsable values are never dropped.
func (m *Machine) outOfBounds(instant types.Instant, ok bool) bool {
	return m.mode == types.ModeFixed && ok && !m.bounds.Contains(instant)
}

func (m *Machine) parse(d types.Datum) (types.Instant, bool) {
	if m.parser == nil {
		return 0, false
	}

	return m.parser.Parse(d)
}

func (m *Machine) useTimeKey(timeKey string) {
	m.timeKey = timeKey
	m.parser = nil
	if m.resolver == nil {
		return
	}

	parser, ok := m.resolver.Parser(timeKey)
	if !ok {
		m.logger.Warn("no parser for time key, ordering disabled", "entity", m.entity, "time_key", timeKey)
		return
	}
	m.parser = parser
}

func (m *Machine) clearCandidate() {
	m.candidate = nil
	m.hasCandidate = false
}

func (m *Machine) transition(to types.State) {
	from := m.state
	if from == to {
		return
	}

	m.state = to
	m.metrics.RecordStateTransition(from, to)
	m.logger.Info("state transition", "entity", m.entity, "from", from, "to", to)
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}
