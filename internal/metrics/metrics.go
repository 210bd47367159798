// Package metrics exposes Prometheus counters for the session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry
	authOps  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	authOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Session lifecycle operations by name and result.",
	}, []string{"operation", "result"})

	registry.MustRegister(authOps)

	return &Metrics{registry: registry, authOps: authOps}
}

func (m *Metrics) ObserveAuthOp(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.authOps.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
