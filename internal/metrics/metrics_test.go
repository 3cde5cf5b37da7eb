package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightsession/internal/metrics"
)

func TestPromhttpExposure(t *testing.T) {
	metrics.ObserveUpstream("search", "2xx")
	metrics.ObserveAutocomplete(metrics.OutcomeSuperseded)
	metrics.ObserveSearch(metrics.OutcomeCancelled)
	metrics.ObserveStaleResult()
	metrics.SetActiveSessions(3)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `flightsession_upstream_requests_total{endpoint="search",status="2xx"}`)
	assert.Contains(t, text, `flightsession_autocomplete_total{outcome="superseded"}`)
	assert.Contains(t, text, `flightsession_search_total{outcome="cancelled"}`)
	assert.Contains(t, text, "flightsession_stale_results_discarded_total")
	assert.Contains(t, text, "flightsession_sessions_active 3")
}
