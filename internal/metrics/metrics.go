// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers and the swap service report to.
type Recorder interface {
	RecordSwapRequested(swapType string)
	RecordSwapSettled(status string)
	RecordPointsMoved(reason string, points int)
	RecordItemModerated(decision string)
	RecordHTTPRequest(method string, status int, duration time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	swapsRequested *prometheus.CounterVec
	swapsSettled   *prometheus.CounterVec
	pointsMoved    *prometheus.CounterVec
	itemsModerated *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swapsRequested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewear_swaps_requested_total",
			Help: "Swap requests created, by swap type.",
		}, []string{"type"}),
		swapsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewear_swaps_settled_total",
			Help: "Swaps moved out of pending, by resulting status.",
		}, []string{"status"}),
		pointsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewear_points_moved_total",
			Help: "Absolute points written to the ledger, by reason.",
		}, []string{"reason"}),
		itemsModerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewear_items_moderated_total",
			Help: "Admin moderation decisions, by decision.",
		}, []string{"decision"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewear_http_requests_total",
			Help: "HTTP responses, by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewear_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.swapsRequested,
		c.swapsSettled,
		c.pointsMoved,
		c.itemsModerated,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordSwapRequested counts a new swap request.
func (c *Collector) RecordSwapRequested(swapType string) {
	c.swapsRequested.WithLabelValues(swapType).Inc()
}

// RecordSwapSettled counts a swap leaving the pending state.
func (c *Collector) RecordSwapSettled(status string) {
	c.swapsSettled.WithLabelValues(status).Inc()
}

// RecordPointsMoved adds the absolute value of a balance change.
func (c *Collector) RecordPointsMoved(reason string, points int) {
	if points < 0 {
		points = -points
	}
	c.pointsMoved.WithLabelValues(reason).Add(float64(points))
}

// RecordItemModerated counts an approve, reject or remove decision.
func (c *Collector) RecordItemModerated(decision string) {
	c.itemsModerated.WithLabelValues(decision).Inc()
}

// RecordHTTPRequest counts a response and observes its latency.
func (c *Collector) RecordHTTPRequest(method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. It is used when metrics are not wired.
type Nop struct{}

func (Nop) RecordSwapRequested(string)                   {}
func (Nop) RecordSwapSettled(string)                     {}
func (Nop) RecordPointsMoved(string, int)                {}
func (Nop) RecordItemModerated(string)                   {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
