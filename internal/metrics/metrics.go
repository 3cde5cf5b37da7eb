package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess    = "success"
	OutcomeCancelled  = "cancelled"
	OutcomeSuperseded = "superseded"
	OutcomeError      = "error"
	OutcomeCacheHit   = "cache_hit"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsession",
		Name:      "upstream_requests_total",
		Help:      "Upstream flight API calls by endpoint and HTTP status class",
	}, []string{"endpoint", "status"})

	autocompleteOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsession",
		Name:      "autocomplete_total",
		Help:      "Autocomplete fetches by outcome (success|cancelled|superseded|error)",
	}, []string{"outcome"})

	searchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flightsession",
		Name:      "search_total",
		Help:      "Flight searches by outcome (success|cancelled|error|cache_hit)",
	}, []string{"outcome"})

	staleResults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flightsession",
		Name:      "stale_results_discarded_total",
		Help:      "Completed searches dropped because a newer search was started",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flightsession",
		Name:      "sessions_active",
		Help:      "Search sessions currently held in memory",
	})
)

func ObserveUpstream(endpoint, status string) {
	upstreamRequests.WithLabelValues(endpoint, status).Inc()
}

func ObserveAutocomplete(outcome string) {
	autocompleteOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveSearch(outcome string) {
	searchOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveStaleResult() {
	staleResults.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
