// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/lastvalue/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	r, err := lastvalue.NewReconciler(&cfg, src, tc, formats, lastvalue.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ReconcilerMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// RecordEmission discards the emission metric.
func (n *NopMetrics) RecordEmission(_ /* origin */ string) {}

// RecordRejection discards the rejection metric.
func (n *NopMetrics) RecordRejection(_ /* reason */ string) {}

// RecordCandidate discards the candidate decision metric.
func (n *NopMetrics) RecordCandidate(_ /* decision */ string) {}

// RecordHistoricalRequest discards the historical request metric.
func (n *NopMetrics) RecordHistoricalRequest(_ /* result */ string, _ /* duration */ float64) {}

// RecordHistoricalDiscarded discards the discarded-result metric.
func (n *NopMetrics) RecordHistoricalDiscarded(_ /* reason */ string) {}

// RecordActiveReconcilers discards the active reconciler gauge update.
func (n *NopMetrics) RecordActiveReconcilers(_ /* delta */ int) {}

// SourceMetrics implementation

// RecordSourceDelivery discards the delivery metric.
func (n *NopMetrics) RecordSourceDelivery() {}

// RecordSourceDecodeError discards the decode error metric.
func (n *NopMetrics) RecordSourceDecodeError() {}

// RecordSourceScan discards the scan metric.
func (n *NopMetrics) RecordSourceScan(_ /* inspected */ int) {}

// TimeContextMetrics implementation

// RecordTimeContextChange discards the time context change metric.
func (n *NopMetrics) RecordTimeContextChange(_ /* kind */ string) {}
