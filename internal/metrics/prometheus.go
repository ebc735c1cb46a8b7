package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/lastvalue/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing a
// PrometheusCollector never panics on duplicate registration until it is actually
// exercised.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Reconciler metrics
	stateTransitions    *prometheus.CounterVec
	emissions           *prometheus.CounterVec
	rejections          *prometheus.CounterVec
	candidates          *prometheus.CounterVec
	historicalRequests  *prometheus.CounterVec
	historicalLatency   prometheus.Histogram
	historicalDiscarded *prometheus.CounterVec
	activeReconcilers   prometheus.Gauge

	// Source metrics
	sourceDeliveries   prometheus.Counter
	sourceDecodeErrors prometheus.Counter
	sourceScanned      prometheus.Histogram

	// Time context metrics
	timeContextChanges *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "lastvalue" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lastvalue"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "state_transitions_total",
			Help:      "Total reconciler state transitions by source and target state.",
		}, []string{"from", "to"})

		p.emissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "emissions_total",
			Help:      "Total values delivered to consumers by origin (historical,push,candidate).",
		}, []string{"origin"})

		p.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "rejections_total",
			Help:      "Total values filtered out by reason (out_of_bounds,out_of_order).",
		}, []string{"reason"})

		p.candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "candidate_decisions_total",
			Help:      "Total candidate slot decisions while awaiting the historical result (replaced,retained).",
		}, []string{"decision"})

		p.historicalRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "historical_requests_total",
			Help:      "Total historical requests by result (hit,empty,error).",
		}, []string{"result"})

		p.historicalLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "historical_request_seconds",
			Help:      "Latency of historical requests in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		})

		p.historicalDiscarded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "historical_discarded_total",
			Help:      "Total historical results discarded on arrival by reason (disposed,superseded).",
		}, []string{"reason"})

		p.activeReconcilers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "active",
			Help:      "Number of started, not yet disposed reconcilers.",
		})

		p.sourceDeliveries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "source",
			Name:      "deliveries_total",
			Help:      "Total datums delivered by push subscriptions.",
		})

		p.sourceDecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "source",
			Name:      "decode_errors_total",
			Help:      "Total payloads that could not be decoded into a datum.",
		})

		p.sourceScanned = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "source",
			Name:      "scan_inspected_messages",
			Help:      "Stored messages inspected per windowed historical lookup.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		})

		p.timeContextChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "time_context",
			Name:      "changes_total",
			Help:      "Total time context notifications by kind (bounds,tick,clock,timesystem).",
		}, []string{"kind"})

		p.reg.MustRegister(
			p.stateTransitions,
			p.emissions,
			p.rejections,
			p.candidates,
			p.historicalRequests,
			p.historicalLatency,
			p.historicalDiscarded,
			p.activeReconcilers,
			p.sourceDeliveries,
			p.sourceDecodeErrors,
			p.sourceScanned,
			p.timeContextChanges,
		)
	})
}

// ReconcilerMetrics implementation

// RecordStateTransition increments the transition counter for from -> to.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordEmission increments the emission counter for origin.
func (p *PrometheusCollector) RecordEmission(origin string) {
	p.ensureRegistered()
	p.emissions.WithLabelValues(origin).Inc()
}

// RecordRejection increments the rejection counter for reason.
func (p *PrometheusCollector) RecordRejection(reason string) {
	p.ensureRegistered()
	p.rejections.WithLabelValues(reason).Inc()
}

// RecordCandidate increments the candidate decision counter.
func (p *PrometheusCollector) RecordCandidate(decision string) {
	p.ensureRegistered()
	p.candidates.WithLabelValues(decision).Inc()
}

// RecordHistoricalRequest counts the request result and observes its latency.
func (p *PrometheusCollector) RecordHistoricalRequest(result string, duration float64) {
	p.ensureRegistered()
	p.historicalRequests.WithLabelValues(result).Inc()
	p.historicalLatency.Observe(duration)
}

// RecordHistoricalDiscarded increments the discarded-result counter.
func (p *PrometheusCollector) RecordHistoricalDiscarded(reason string) {
	p.ensureRegistered()
	p.historicalDiscarded.WithLabelValues(reason).Inc()
}

// RecordActiveReconcilers adds delta to the active reconciler gauge.
func (p *PrometheusCollector) RecordActiveReconcilers(delta int) {
	p.ensureRegistered()
	p.activeReconcilers.Add(float64(delta))
}

// SourceMetrics implementation

// RecordSourceDelivery increments the delivery counter.
func (p *PrometheusCollector) RecordSourceDelivery() {
	p.ensureRegistered()
	p.sourceDeliveries.Inc()
}

// RecordSourceDecodeError increments the decode error counter.
func (p *PrometheusCollector) RecordSourceDecodeError() {
	p.ensureRegistered()
	p.sourceDecodeErrors.Inc()
}

// RecordSourceScan observes the number of inspected messages.
func (p *PrometheusCollector) RecordSourceScan(inspected int) {
	p.ensureRegistered()
	p.sourceScanned.Observe(float64(inspected))
}

// TimeContextMetrics implementation

// RecordTimeContextChange increments the time context change counter.
func (p *PrometheusCollector) RecordTimeContextChange(kind string) {
	p.ensureRegistered()
	p.timeContextChanges.WithLabelValues(kind).Inc()
}
