// Package metrics exposes the Prometheus collectors for the KPI
// platform's own concerns: facade calls, ingestion, event dispatch, and
// KPI computation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds this platform's collectors. It is a single package-level
// registry, separate from Prometheus's global default registry.
var Registry = prometheus.NewRegistry()

var (
	facadeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "facade",
			Name:      "requests_total",
			Help:      "Total service facade operations handled.",
		},
		[]string{"operation", "result"},
	)

	facadeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manufab",
			Subsystem: "facade",
			Name:      "request_duration_seconds",
			Help:      "Duration of service facade operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"operation"},
	)

	ingestionRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "ingestion",
			Name:      "rows_total",
			Help:      "Total ingested CSV rows grouped by outcome.",
		},
		[]string{"kind", "result"},
	)

	eventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Total domain events dispatched to handlers.",
		},
		[]string{"event_type", "class", "status"},
	)

	eventDeadLetters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "events",
			Name:      "dead_letter_total",
			Help:      "Total events moved to the dead-letter list after repeated handler failure.",
		},
		[]string{"event_type"},
	)

	eventQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "manufab",
			Subsystem: "events",
			Name:      "queue_depth",
			Help:      "Current depth of the async event dispatch queue.",
		},
	)

	kpiEvalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manufab",
			Subsystem: "kpi",
			Name:      "eval_duration_seconds",
			Help:      "Duration of KPI computation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"kpi"},
	)

	kpiCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "kpi",
			Name:      "cache_hit_total",
			Help:      "Total KPI read-through cache hits.",
		},
		[]string{"kpi"},
	)

	kpiCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manufab",
			Subsystem: "kpi",
			Name:      "cache_miss_total",
			Help:      "Total KPI read-through cache misses.",
		},
		[]string{"kpi"},
	)
)

func init() {
	Registry.MustRegister(
		facadeRequests,
		facadeDuration,
		ingestionRows,
		eventsDispatched,
		eventDeadLetters,
		eventQueueDepth,
		kpiEvalDuration,
		kpiCacheHits,
		kpiCacheMisses,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registered collectors for scraping by an external
// collaborator; wiring it to an HTTP mux is out of this module's scope.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveFacadeCall records a facade operation's outcome and latency.
func ObserveFacadeCall(operation, result string, seconds float64) {
	facadeRequests.WithLabelValues(operation, result).Inc()
	facadeDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveIngestionRow records one ingested row's outcome.
func ObserveIngestionRow(kind, result string) {
	ingestionRows.WithLabelValues(kind, result).Inc()
}

// ObserveEventDispatch records a handler dispatch outcome.
func ObserveEventDispatch(eventType, class, status string) {
	eventsDispatched.WithLabelValues(eventType, class, status).Inc()
}

// ObserveDeadLetter records an event moved to the dead-letter list.
func ObserveDeadLetter(eventType string) {
	eventDeadLetters.WithLabelValues(eventType).Inc()
}

// SetEventQueueDepth reports the current async dispatch queue depth.
func SetEventQueueDepth(depth int) {
	eventQueueDepth.Set(float64(depth))
}

// ObserveKPIEval records KPI computation latency.
func ObserveKPIEval(kpi string, seconds float64) {
	kpiEvalDuration.WithLabelValues(kpi).Observe(seconds)
}

// ObserveKPICacheHit records a KPI cache hit.
func ObserveKPICacheHit(kpi string) { kpiCacheHits.WithLabelValues(kpi).Inc() }

// ObserveKPICacheMiss records a KPI cache miss.
func ObserveKPICacheMiss(kpi string) { kpiCacheMisses.WithLabelValues(kpi).Inc() }
