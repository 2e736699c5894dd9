// Package metrics exposes Prometheus instruments for the tracker and its
// HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketingganttai"

// Metrics holds every instrument. It satisfies tracker.Recorder.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	PlanGenerations *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
	LayoutDuration  prometheus.Histogram
}

// New registers the instruments with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PlanGenerations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plan_generations_total",
				Help:      "Total number of plan generation attempts",
			},
			[]string{"success"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of failed task store operations",
			},
			[]string{"op"},
		),
		LayoutDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Time spent computing the timeline layout",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
	}
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// StoreError counts a failed store operation.
func (m *Metrics) StoreError(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}

// PlanGenerated counts a plan generation attempt.
func (m *Metrics) PlanGenerated(success bool) {
	m.PlanGenerations.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveLayout records how long a layout computation took.
func (m *Metrics) ObserveLayout(d time.Duration) {
	m.LayoutDuration.Observe(d.Seconds())
}
