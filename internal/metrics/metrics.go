// Package metrics exposes Prometheus counters for the credential request lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

const namespace = "vcdemo"

// otherStatus is the status label used for callback statuses the tracker does not define.
// Callback statuses come from an unauthenticated caller and must not create new series.
const otherStatus = "other"

// Recorder is implemented by the Prometheus metrics and by Noop.
type Recorder interface {
	IncRequestCreated(kind string)
	IncCallback(kind, status string)
	IncCallbackUnmatched(kind string)
	IncUpstreamError(operation string)
}

// Metrics holds the service collectors, all registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsCreated    *prometheus.CounterVec
	callbacks          *prometheus.CounterVec
	callbacksUnmatched *prometheus.CounterVec
	upstreamErrors     *prometheus.CounterVec
}

var _ Recorder = (*Metrics)(nil)

// New creates and registers the collectors.
// trackedRequests is sampled on every scrape to report the current store size.
func New(trackedRequests func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{registry: registry}

	m.requestsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace,
		Name: "requests_created_total", Help: "Issuance and presentation requests created"}, []string{"kind"})
	m.callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace,
		Name: "callbacks_total", Help: "Platform callbacks applied to a tracked request"}, []string{"kind", "status"})
	m.callbacksUnmatched = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace,
		Name: "callbacks_unmatched_total", Help: "Platform callbacks whose state matched no tracked request"}, []string{"kind"})
	m.upstreamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace,
		Name: "upstream_errors_total", Help: "Failed calls to the credential platform or directory"}, []string{"operation"})

	registry.MustRegister(m.requestsCreated, m.callbacks, m.callbacksUnmatched, m.upstreamErrors)

	if trackedRequests != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Namespace: namespace,
			Name: "tracked_requests", Help: "Requests currently held by the tracker"},
			func() float64 { return float64(trackedRequests()) }))
	}

	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncRequestCreated(kind string) {
	m.requestsCreated.With(prometheus.Labels{"kind": kind}).Inc()
}

func (m *Metrics) IncCallback(kind, status string) {
	m.callbacks.With(prometheus.Labels{"kind": kind, "status": callbackStatusLabel(status)}).Inc()
}

func callbackStatusLabel(status string) string {
	if tracker.IsKnownStatus(status) {
		return status
	}
	return otherStatus
}

func (m *Metrics) IncCallbackUnmatched(kind string) {
	m.callbacksUnmatched.With(prometheus.Labels{"kind": kind}).Inc()
}

func (m *Metrics) IncUpstreamError(operation string) {
	m.upstreamErrors.With(prometheus.Labels{"operation": operation}).Inc()
}

// Noop discards everything. Used when METRICS_ENABLED is false and in tests.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) IncRequestCreated(string)    {}
func (Noop) IncCallback(string, string)  {}
func (Noop) IncCallbackUnmatched(string) {}
func (Noop) IncUpstreamError(string)     {}
