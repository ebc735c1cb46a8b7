package types

import "context"

// StrategyLatest asks a TelemetrySource for the most recent datum only.
const StrategyLatest = "latest"

// RequestOptions parameterizes a historical request.
type RequestOptions struct {
	// Bounds is the inclusive window to search.
	Bounds Bounds

	// TimeKey is the active time-key; sources that filter by window use it to
	// interpret datums.
	TimeKey string

	// Strategy is a hint for the source; StrategyLatest requests the newest datum.
	Strategy string

	// Size caps the number of datums returned. Zero means the source default.
	Size int
}

// TelemetrySource provides historical lookups and live push subscriptions for
// telemetry-producing entities.
type TelemetrySource interface {
	// Request performs a one-shot historical lookup.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadline
	//   - entity: Entity identifier
	//   - opts: Window, time-key and strategy hints
	//
	// Returns:
	//   - []Datum: Zero or one datum under StrategyLatest, oldest first otherwise
	//   - error: Lookup failure; reconcilers treat it as "no datum"
	Request(ctx context.Context, entity string, opts RequestOptions) ([]Datum, error)

	// Subscribe opens a push subscription.
	//
	// onDatum is invoked zero or more times in arrival order, never concurrently with
	// itself, until cancel is called.
	//
	// Parameters:
	//   - entity: Entity identifier
	//   - onDatum: Handler for each arriving datum
	//
	// Returns:
	//   - func(): Cancels the subscription; idempotent
	//   - error: Non-nil when the subscription could not be opened
	Subscribe(entity string, onDatum func(d Datum)) (cancel func(), err error)
}
