package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called from reconciler, source and time context goroutines and must be
// thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	ReconcilerMetrics
	SourceMetrics
	TimeContextMetrics
}

// ReconcilerMetrics defines metrics for reconciler decisions and lifecycle.
type ReconcilerMetrics interface {
	// RecordStateTransition records a reconciler state transition.
	RecordStateTransition(from, to State)

	// RecordEmission records a value delivered to a consumer.
	//
	// Parameters:
	//   - origin: "historical", "push" or "candidate"
	RecordEmission(origin string)

	// RecordRejection records a value that was filtered out.
	//
	// Parameters:
	//   - reason: "out_of_bounds" or "out_of_order"
	RecordRejection(reason string)

	// RecordCandidate records how a push arrival affected the pending candidate.
	//
	// Parameters:
	//   - decision: "replaced" or "retained"
	RecordCandidate(decision string)

	// RecordHistoricalRequest records the outcome of a historical request.
	//
	// Parameters:
	//   - result: "hit", "empty" or "error"
	//   - duration: Time taken in seconds
	RecordHistoricalRequest(result string, duration float64)

	// RecordHistoricalDiscarded records a historical result that arrived too late.
	//
	// Parameters:
	//   - reason: "disposed" or "superseded"
	RecordHistoricalDiscarded(reason string)

	// RecordActiveReconcilers adjusts the active reconciler gauge by delta.
	RecordActiveReconcilers(delta int)
}

// SourceMetrics defines metrics for telemetry source adapters.
type SourceMetrics interface {
	// RecordSourceDelivery records a datum pushed by a subscription.
	RecordSourceDelivery()

	// RecordSourceDecodeError records a payload that could not be decoded.
	RecordSourceDecodeError()

	// RecordSourceScan records how many stored messages a windowed lookup inspected.
	RecordSourceScan(inspected int)
}

// TimeContextMetrics defines metrics for time context changes.
type TimeContextMetrics interface {
	// RecordTimeContextChange records a time context notification.
	//
	// Parameters:
	//   - kind: "bounds", "tick", "clock" or "timesystem"
	RecordTimeContextChange(kind string)
}
