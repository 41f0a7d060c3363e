package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's Prometheus collectors. Each Server owns its own
// registry so parallel test servers never fight over collector names.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	providerErrors  *prometheus.CounterVec
	decksBuilt      prometheus.Counter
	providerLatency prometheus.Histogram
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_requests_total",
			Help: "HTTP requests served, by handler and status code.",
		}, []string{"handler", "status"}),
		providerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_provider_errors_total",
			Help: "LLM provider failures, by provider.",
		}, []string{"provider"}),
		decksBuilt: factory.NewCounter(prometheus.CounterOpts{
			Name: "deckgen_decks_built_total",
			Help: "Decks successfully built and streamed back.",
		}),
		providerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deckgen_provider_latency_seconds",
			Help:    "Wall time of slide plan generation calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
