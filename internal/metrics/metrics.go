// Package metrics holds the Prometheus collectors exported by docstored.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notekeeper"

// Metrics groups the collectors for RPC traffic and document operations.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequests   *prometheus.CounterVec
	RPCDuration   *prometheus.HistogramVec
	RPCInFlight   prometheus.Gauge
	DocumentOps   *prometheus.CounterVec
	RateLimited   *prometheus.CounterVec
	TokensRevoked prometheus.Counter
}

// New registers all collectors on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is true.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		RPCInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "in_flight",
			Help:      "RPC calls currently being served.",
		}),
		DocumentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "docstore",
			Name:      "operations_total",
			Help:      "Document store operations by kind and collection.",
		}, []string{"op", "collection"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "rate_limited_total",
			Help:      "RPC calls rejected by the rate limiter.",
		}, []string{"procedure"}),
		TokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Tokens revoked through logout.",
		}),
	}
	reg.MustRegister(m.RPCRequests, m.RPCDuration, m.RPCInFlight, m.DocumentOps, m.RateLimited, m.TokensRevoked)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDocumentOp counts one document operation. Safe on a nil receiver.
func (m *Metrics) ObserveDocumentOp(op, collection string) {
	if m == nil {
		return
	}
	m.DocumentOps.WithLabelValues(op, collection).Inc()
}

// ObserveRevocation counts one revoked token. Safe on a nil receiver.
func (m *Metrics) ObserveRevocation() {
	if m == nil {
		return
	}
	m.TokensRevoked.Inc()
}
