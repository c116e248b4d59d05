// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh metrics
	RefreshCyclesTotal  *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	SnapshotSize        prometheus.Gauge
	LastSuccessfulCycle prometheus.Gauge
	DroppedTickers      prometheus.Counter

	// Upstream metrics
	SourceFetchDuration *prometheus.HistogramVec

	// Store metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "top_tickers"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RefreshCyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "cycles_total",
			Help:      "Total number of refresh cycles by status and failed stage",
		}, []string{"status", "stage"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Refresh cycle duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "snapshot_size",
			Help:      "Number of tickers in the last stored snapshot",
		}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh cycle",
		}),
		DroppedTickers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "dropped_tickers_total",
			Help:      "Total number of upstream tickers dropped as invalid",
		}),

		SourceFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream ticker fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		StoreOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "op_duration_seconds",
			Help:      "Snapshot store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreOpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "op_errors_total",
			Help:      "Total number of snapshot store operation errors",
		}, []string{"backend", "operation"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRefreshCycle records the outcome of one refresh cycle.
// stage is empty for successful cycles.
func RecordRefreshCycle(status, stage string, durationSeconds float64) {
	DefaultMetrics.RefreshCyclesTotal.WithLabelValues(status, stage).Inc()
	DefaultMetrics.RefreshDuration.Observe(durationSeconds)
}

// RecordSnapshotStored updates the snapshot gauges after a successful replace.
func RecordSnapshotStored(size int, at time.Time) {
	DefaultMetrics.SnapshotSize.Set(float64(size))
	DefaultMetrics.LastSuccessfulCycle.Set(float64(at.Unix()))
}

// RecordDroppedTickers adds n invalid upstream entries to the dropped counter.
func RecordDroppedTickers(n int) {
	if n > 0 {
		DefaultMetrics.DroppedTickers.Add(float64(n))
	}
}

// RecordSourceFetch records upstream fetch latency.
func RecordSourceFetch(status string, seconds float64) {
	DefaultMetrics.SourceFetchDuration.WithLabelValues(status).Observe(seconds)
}

// RecordStoreOp records snapshot store operation metrics.
func RecordStoreOp(backend, operation string, seconds float64, err error) {
	DefaultMetrics.StoreOpDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(route string, code int) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
