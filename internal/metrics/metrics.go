// Package metrics exposes Prometheus collectors for dataset refreshes,
// metric computation and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names as constants for consistency.
const (
	MetricRefreshTotal        = "aulas_refresh_total"
	MetricRefreshDuration     = "aulas_refresh_duration_seconds"
	MetricRefreshTriggers     = "aulas_refresh_triggers_total"
	MetricComputeDuration     = "aulas_compute_duration_seconds"
	MetricCacheLookups        = "aulas_cache_lookups_total"
	MetricSnapshotLessons     = "aulas_snapshot_lessons"
	MetricSnapshotClients     = "aulas_snapshot_clients"
	MetricHTTPRequestsTotal   = "aulas_http_requests_total"
	MetricHTTPRequestDuration = "aulas_http_request_duration_seconds"
)

// Label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	CacheHit  = "hit"
	CacheMiss = "miss"

	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerMessage  = "message"
	TriggerAPI      = "api"
)

// Metrics contains the collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	refreshTriggers *prometheus.CounterVec
	computeDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	snapshotLessons prometheus.Gauge
	snapshotClients prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRefreshTotal,
				Help: "Dataset refreshes by outcome",
			},
			[]string{"status"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRefreshDuration,
				Help:    "Time spent fetching and normalizing both collections",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		refreshTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRefreshTriggers,
				Help: "Refresh requests by what triggered them",
			},
			[]string{"trigger"},
		),
		computeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricComputeDuration,
				Help:    "Time spent filtering and aggregating one selection",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheLookups,
				Help: "Derived metrics cache lookups by result",
			},
			[]string{"result"},
		),
		snapshotLessons: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricSnapshotLessons,
				Help: "Lesson records in the current snapshot",
			},
		),
		snapshotClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricSnapshotClients,
				Help: "Client records in the current snapshot",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "path"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors, mainly for tests.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.refreshTotal,
		m.refreshDuration,
		m.refreshTriggers,
		m.computeDuration,
		m.cacheLookups,
		m.snapshotLessons,
		m.snapshotClients,
		m.httpRequests,
		m.httpDuration,
	}
}

func (m *Metrics) ObserveRefresh(err error, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.refreshTotal.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

func (m *Metrics) IncRefreshTrigger(trigger string) {
	if m == nil {
		return
	}
	m.refreshTriggers.WithLabelValues(trigger).Inc()
}

func (m *Metrics) SetSnapshotSize(lessons, clients int) {
	if m == nil {
		return
	}
	m.snapshotLessons.Set(float64(lessons))
	m.snapshotClients.Set(float64(clients))
}

func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(d.Seconds())
}

func (m *Metrics) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served request. path should be the route
// pattern, not the raw URL, to bound label cardinality.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the metrics gathered by reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
