// Package metrics holds the Prometheus collectors of the API and poller
// processes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidiai"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SubmissionsTotal  *prometheus.CounterVec
	SubmitDuration    *prometheus.HistogramVec
	CreditsDebited    *prometheus.CounterVec
	CreditsRefunded   prometheus.Counter
	StatusChecksTotal *prometheus.CounterVec
	TransitionsTotal  *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
	PollTickDuration  prometheus.Histogram
}

// New registers all collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		SubmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "submissions_total",
			Help:      "Generation submissions by provider and outcome",
		}, []string{"provider", "outcome"}),
		SubmitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "submit_duration_seconds",
			Help:      "Provider submit call latency",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		CreditsDebited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_debited_total",
			Help:      "Credits debited for generations by content kind",
		}, []string{"kind"}),
		CreditsRefunded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_refunded_total",
			Help:      "Credits returned after failed submissions or failed jobs",
		}),
		StatusChecksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "status_checks_total",
			Help:      "Provider status checks by outcome",
		}, []string{"provider", "outcome"}),
		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "transitions_total",
			Help:      "Applied terminal transitions",
		}, []string{"provider", "status"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		}, []string{"provider"}),
		PollTickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one poll tick",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler exposes the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveSubmit records a provider submission.
func (m *Metrics) ObserveSubmit(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(provider, outcome).Inc()
	if elapsed > 0 {
		m.SubmitDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// Debited counts credits charged for a kind.
func (m *Metrics) Debited(kind string, credits int) {
	if m == nil {
		return
	}
	m.CreditsDebited.WithLabelValues(kind).Add(float64(credits))
}

// Refunded counts credits given back.
func (m *Metrics) Refunded(credits int) {
	if m == nil {
		return
	}
	m.CreditsRefunded.Add(float64(credits))
}

// ObserveCheck records one status check outcome.
func (m *Metrics) ObserveCheck(provider, outcome string) {
	if m == nil {
		return
	}
	m.StatusChecksTotal.WithLabelValues(provider, outcome).Inc()
}

// Transition counts an applied terminal transition.
func (m *Metrics) Transition(provider, status string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(provider, status).Inc()
}

// SetBreakerState publishes a breaker state code.
func (m *Metrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// TickTimer starts timing a poll tick. Call ObserveDuration when done.
func (m *Metrics) TickTimer() *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.PollTickDuration)
}
