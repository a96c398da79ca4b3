// Package metrics exposes Prometheus instrumentation for the functions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Recorder is used by the relay and profile functions.
type Recorder interface {
	RecordRelay(backend, outcome string, duration time.Duration)
	RecordProfileBootstrap(outcome string, created bool)
	RecordHTTPStatus(route string, statusCode int)
}

// Collector records to Prometheus.
type Collector struct {
	relayTotal    *prometheus.CounterVec
	relayLatency  *prometheus.HistogramVec
	profilesTotal *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		relayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bodycoach_relay_requests_total",
			Help: "Prompt relay requests by model backend and outcome.",
		}, []string{"backend", "outcome"}),
		relayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bodycoach_relay_latency_seconds",
			Help:    "Model backend round trip latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),
		profilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bodycoach_profile_bootstrap_total",
			Help: "Profile bootstrap calls by outcome and whether a document was written.",
		}, []string{"outcome", "created"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bodycoach_http_responses_total",
			Help: "Function responses by route and status code.",
		}, []string{"route", "status_code"}),
	}

	reg.MustRegister(
		c.relayTotal,
		c.relayLatency,
		c.profilesTotal,
		c.httpStatus,
	)

	return c
}

// RecordRelay counts a relay call and observes its latency.
func (c *Collector) RecordRelay(backend, outcome string, duration time.Duration) {
	c.relayTotal.WithLabelValues(backend, outcome).Inc()
	if outcome != OutcomeRejected {
		c.relayLatency.WithLabelValues(backend).Observe(duration.Seconds())
	}
}

// RecordProfileBootstrap counts a bootstrap call.
func (c *Collector) RecordProfileBootstrap(outcome string, created bool) {
	c.profilesTotal.WithLabelValues(outcome, strconv.FormatBool(created)).Inc()
}

// RecordHTTPStatus counts a response.
func (c *Collector) RecordHTTPStatus(route string, statusCode int) {
	c.httpStatus.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordRelay(string, string, time.Duration) {}
func (Noop) RecordProfileBootstrap(string, bool)        {}
func (Noop) RecordHTTPStatus(string, int)               {}

// Handler serves the registry for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
