package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightsession/internal/api"
	"github.com/dharmasatrya/flightsession/internal/autocomplete"
	"github.com/dharmasatrya/flightsession/internal/flights"
	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/session"
	"github.com/dharmasatrya/flightsession/internal/timezone"
)

const flightsBody = `{"data":{"flightList":{"departure":[
	{"id":"1","departureAirport":"IST","arrivalAirport":"ESB","departureDatetime":"2025-03-01T09:00:00+03:00","arrivalDatetime":"2025-03-01T10:10:00+03:00","duration":{"hours":1,"minutes":10},"viewPrice":1450,"segments":[{"airline":"Pegasus","flightNumber":"PC2010"}]},
	{"id":"2","departureAirport":"IST","arrivalAirport":"ESB","departureDatetime":"2025-03-01T07:00:00+03:00","arrivalDatetime":"2025-03-01T08:05:00+03:00","duration":{"hours":1,"minutes":5},"fares":{"ADT":{"baseFare":980}},"segments":[{"airline":"AJet","flightNumber":"VF3001"}]}
]}}}`

type testServer struct {
	e        *echo.Echo
	registry *session.Registry
	upstream *httptest.Server
	status   atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{}
	ts.status.Store(http.StatusOK)
	ts.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status := int(ts.status.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/autocomplete/flight-ticket":
			term := r.URL.Query().Get("term")
			_, _ = io.WriteString(w, `{"data":[{"name":"`+term+` Havalimanı","code":"IST"},null]}`)
		case "/flight-ticket/get-flights":
			_, _ = io.WriteString(w, flightsBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.upstream.Close)

	nop := zerolog.Nop()
	client := api.New(ts.upstream.URL, api.WithLogger(nop))
	ts.registry = session.NewRegistry(func() *session.Store {
		acfg := autocomplete.Config{Debounce: time.Millisecond, Timeout: time.Second, Logger: &nop}
		return session.New(session.Dependency{
			OriginSuggestions:      autocomplete.NewFetcher(client, acfg),
			DestinationSuggestions: autocomplete.NewFetcher(client, acfg),
			Flights:                flights.NewSearcher(client, flights.Config{Timeout: time.Second, Location: timezone.TRT, Logger: &nop}),
			Debounce:               time.Millisecond,
			Logger:                 &nop,
		})
	}, time.Minute)
	t.Cleanup(ts.registry.Close)

	ts.e = echo.New()
	h := NewSessionHandler(ts.registry)
	h.Register(ts.e.Group("/api/v1"))
	ts.e.GET("/health", h.Health)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) fillForm(t *testing.T, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/session/suggestions/origin/select", id, `{"name":"Istanbul","code":"IST"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/session/suggestions/destination/select", id, `{"name":"Ankara","code":"ESB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPatch, "/api/v1/session/form", id, `{"field":"departureDate","value":"2025-03-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetSession_IssuesID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/session", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)

	st := decode[session.State](t, rec)
	assert.Equal(t, session.DefaultTab, st.ActiveTab)
	assert.Equal(t, 1, st.SearchForm.Passengers)

	rec = ts.do(t, http.MethodGet, "/api/v1/session", id, "")
	assert.Equal(t, id, rec.Header().Get(HeaderSessionID))
	assert.Equal(t, 1, ts.registry.Len())
}

func TestSetTab(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/session/tab", "", `{"tab":"hotel"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hotel", decode[session.State](t, rec).ActiveTab)

	rec = ts.do(t, http.MethodPut, "/api/v1/session/tab", "", `{"tab":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateForm(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPatch, "/api/v1/session/form", "", `{"field":"passengers","value":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(HeaderSessionID)
	assert.Equal(t, 3, decode[session.State](t, rec).SearchForm.Passengers)

	rec = ts.do(t, http.MethodPatch, "/api/v1/session/form", id, `{"field":"cabin","value":"business"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_field", decode[models.ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPatch, "/api/v1/session/form", id, `{"field":"passengers","value":"zero"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_value", decode[models.ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPatch, "/api/v1/session/form", id, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/session/suggestions/origin?term=ist", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[suggestionsResponse](t, rec)
	assert.Equal(t, session.SideOrigin, resp.Side)
	assert.Equal(t, []models.Suggestion{{Name: "ist Havalimanı", Code: "IST"}}, resp.Suggestions)
	assert.False(t, resp.Loading)

	id := rec.Header().Get(HeaderSessionID)
	rec = ts.do(t, http.MethodGet, "/api/v1/session/suggestions/origin?term=i", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[suggestionsResponse](t, rec).Suggestions)

	rec = ts.do(t, http.MethodGet, "/api/v1/session/suggestions/arrival?term=ist", id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownSideStartsNoSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/session/suggestions/arrival?term=ist", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/session/suggestions/arrival/select", "", `{"name":"Esenboğa","code":"ESB"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, rec.Header().Get(HeaderSessionID))
	assert.Zero(t, ts.registry.Len())
}

func TestClosedRegistryRefusesSessions(t *testing.T) {
	ts := newTestServer(t)
	id := ts.do(t, http.MethodGet, "/api/v1/session", "", "").Header().Get(HeaderSessionID)
	ts.registry.Close()

	for _, sessionID := range []string{"", id} {
		rec := ts.do(t, http.MethodGet, "/api/v1/session", sessionID, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "session_unavailable", decode[models.ErrorResponse](t, rec).Error)
		assert.Empty(t, rec.Header().Get(HeaderSessionID))
	}
	assert.Zero(t, ts.registry.Len())
}

func TestSuggestions_UpstreamErrorGivesEmptyList(t *testing.T) {
	ts := newTestServer(t)
	ts.status.Store(http.StatusBadGateway)

	rec := ts.do(t, http.MethodGet, "/api/v1/session/suggestions/destination?term=esb", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[suggestionsResponse](t, rec)
	assert.NotNil(t, resp.Suggestions)
	assert.Empty(t, resp.Suggestions)
	assert.False(t, resp.Loading)
}

func TestSelectAndClearSuggestions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/session/suggestions/destination/select", "", `{"name":"Esenboğa","code":"ESB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(HeaderSessionID)
	st := decode[session.State](t, rec)
	assert.Equal(t, "Esenboğa", st.SearchForm.Destination)
	assert.Equal(t, "ESB", st.SearchForm.DestinationCode)
	assert.True(t, st.DestinationSelected)

	rec = ts.do(t, http.MethodPost, "/api/v1/session/suggestions/destination/select", id, `{"code":"ESB"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/session/suggestions", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[session.State](t, rec).DestinationSelected)
}

func TestSearch_InvalidForm(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/session/search", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decode[models.ErrorResponse](t, rec).Error)
}

func TestSearchAndResults(t *testing.T) {
	ts := newTestServer(t)
	id := ts.do(t, http.MethodGet, "/api/v1/session", "", "").Header().Get(HeaderSessionID)
	ts.fillForm(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/session/search", id, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[session.State](t, rec)
	assert.True(t, st.HasResults)
	assert.False(t, st.SearchLoading)
	assert.Nil(t, st.SearchError)

	rec = ts.do(t, http.MethodGet, "/api/v1/session/results?sort_by=price&sort_order=asc", id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results      []models.FlightOption `json:"results"`
		TotalResults int                   `json:"totalResults"`
		HasResults   bool                  `json:"hasResults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, "2", resp.Results[0].ID)
	assert.Equal(t, 980.0, resp.Results[0].Price)
	assert.Equal(t, "AJet", resp.Results[0].Airline)
	assert.Equal(t, "07:00", resp.Results[0].DepartureTime)
	assert.Equal(t, "1s 5dk", resp.Results[0].Duration)

	rec = ts.do(t, http.MethodGet, "/api/v1/session/results?sort_by=stops", id, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/session/results?max_price=abc", id, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/session/results", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[session.State](t, rec).HasResults)
}

func TestSearch_UpstreamErrorThenRetry(t *testing.T) {
	ts := newTestServer(t)
	id := ts.do(t, http.MethodGet, "/api/v1/session", "", "").Header().Get(HeaderSessionID)
	ts.fillForm(t, id)

	ts.status.Store(http.StatusInternalServerError)
	rec := ts.do(t, http.MethodPost, "/api/v1/session/search", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[session.State](t, rec)
	require.NotNil(t, st.SearchError)
	assert.Contains(t, *st.SearchError, "500")
	assert.False(t, st.HasResults)

	ts.status.Store(http.StatusOK)
	rec = ts.do(t, http.MethodPost, "/api/v1/session/search/retry", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[session.State](t, rec)
	assert.Nil(t, st.SearchError)
	assert.True(t, st.HasResults)
}

func TestReset(t *testing.T) {
	ts := newTestServer(t)
	id := ts.do(t, http.MethodGet, "/api/v1/session", "", "").Header().Get(HeaderSessionID)
	ts.fillForm(t, id)

	rec := ts.do(t, http.MethodPost, "/api/v1/session/reset", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[session.State](t, rec)
	assert.Equal(t, models.DefaultSearchCriteria(), st.SearchForm)
	assert.False(t, st.IsFormValid)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/v1/session", "", "")

	rec := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())
}
