package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// NewRegistry assembles a private registry from component collectors.
func NewRegistry(collectors ...[]prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	for _, group := range collectors {
		for _, collector := range group {
			registry.MustRegister(collector)
		}
	}
	return registry
}
