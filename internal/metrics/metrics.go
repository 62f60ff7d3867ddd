// Package metrics exposes the subsystem's Prometheus collectors. The
// embedding application decides whether and where to serve them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchFailures counts failed or empty refresh attempts across all
	// symbols. Mirrors the in-process failure counter used for
	// circuit-breaking upstream.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricevault_fetch_failures_total",
		Help: "Failed or empty price refresh attempts.",
	})

	// CacheHits counts requests fully served from the persisted cache
	// without touching the network.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricevault_cache_hits_total",
		Help: "Requests answered entirely from the local price cache.",
	})

	// ProviderErrors counts per-provider fetch errors, rate limits included.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricevault_provider_errors_total",
		Help: "Fetch errors by provider.",
	}, []string{"provider"})
)
