package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	sourceFailures *prometheus.CounterVec
	cacheEvents    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_ticks_ingested_total",
				Help: "Total number of ticks routed to a backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sourceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_source_failures_total",
				Help: "Aggregation sources that failed or timed out",
			},
			[]string{"source"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_view_cache_events_total",
				Help: "View cache hits, misses and stale serves per view kind",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// RecordTickIngested records a tick routed to a backend.
func (r *Recorder) RecordTickIngested(backend, symbol string) {
	r.ticksIngested.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSourceFailure records one failed aggregation source.
func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

// RecordCacheEvent records a view cache outcome (hit, miss, stale).
func (r *Recorder) RecordCacheEvent(kind, outcome string) {
	r.cacheEvents.WithLabelValues(kind, outcome).Inc()
}
