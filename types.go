package lastvalue

import "github.com/arloliu/lastvalue/types"

// Re-export types from the types package.
//
// Collaborator packages (format, timectx, source) depend on types rather than on
// this package; the aliases let users write lastvalue.Datum, lastvalue.Bounds and
// so on without a second import.
type (
	Datum              = types.Datum
	Instant            = types.Instant
	Bounds             = types.Bounds
	Mode               = types.Mode
	State              = types.State
	TimeSystem         = types.TimeSystem
	RequestOptions     = types.RequestOptions
	Callback           = types.Callback
	DisposeFunc        = types.DisposeFunc
	BoundsChangePolicy = types.BoundsChangePolicy
	ParserFunc         = types.ParserFunc
)

// Re-export interfaces from the types package for convenience.
type (
	Clock            = types.Clock
	TimeContext      = types.TimeContext
	TelemetrySource  = types.TelemetrySource
	FormatResolver   = types.FormatResolver
	Parser           = types.Parser
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)

// Re-export constants from the types package.
const (
	StateAwaitingLAD = types.StateAwaitingLAD
	StateLADResolved = types.StateLADResolved
	StateDisposed    = types.StateDisposed

	ModeFixed = types.ModeFixed
	ModeLive  = types.ModeLive

	BoundsRefetch  = types.BoundsRefetch
	BoundsRefilter = types.BoundsRefilter

	StrategyLatest = types.StrategyLatest
)
