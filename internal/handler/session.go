package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/filter"
	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/session"
)

const HeaderSessionID = "X-Session-ID"

type SessionHandler struct {
	registry *session.Registry
	logger   zerolog.Logger
}

func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   flog.WithComponent("handler"),
	}
}

func (h *SessionHandler) Register(g *echo.Group) {
	g.GET("/session", h.GetSession)
	g.PUT("/session/tab", h.SetTab)
	g.PATCH("/session/form", h.UpdateForm)
	g.GET("/session/suggestions/:side", h.Suggestions)
	g.POST("/session/suggestions/:side/select", h.SelectSuggestion)
	g.DELETE("/session/suggestions", h.ClearSuggestions)
	g.POST("/session/search", h.Search)
	g.POST("/session/search/retry", h.RetrySearch)
	g.GET("/session/results", h.Results)
	g.DELETE("/session/results", h.ClearResults)
	g.POST("/session/reset", h.Reset)
}

// store resolves the caller's session and echoes its id back.
func (h *SessionHandler) store(c echo.Context) (*session.Store, error) {
	id, s, err := h.registry.Get(c.Request().Header.Get(HeaderSessionID))
	if err != nil {
		return nil, err
	}
	c.Response().Header().Set(HeaderSessionID, id)
	return s, nil
}

func unavailable(c echo.Context, err error) error {
	return errorJSON(c, http.StatusServiceUnavailable, "session_unavailable", err.Error())
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}

func (h *SessionHandler) GetSession(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

type tabRequest struct {
	Tab string `json:"tab"`
}

func (h *SessionHandler) SetTab(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}

	var req tabRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if strings.TrimSpace(req.Tab) == "" {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "tab is required")
	}

	s.SetActiveTab(req.Tab)
	return c.JSON(http.StatusOK, s.Snapshot())
}

type formFieldRequest struct {
	Field string            `json:"field"`
	Value models.FlexString `json:"value"`
}

func (h *SessionHandler) UpdateForm(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}

	var req formFieldRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}

	if err := s.UpdateFormField(session.Field(req.Field), string(req.Value)); err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownField):
			return errorJSON(c, http.StatusBadRequest, "unknown_field", err.Error())
		case errors.Is(err, session.ErrInvalidValue):
			return errorJSON(c, http.StatusBadRequest, "invalid_value", err.Error())
		default:
			return errorJSON(c, http.StatusInternalServerError, "internal_error", err.Error())
		}
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

type suggestionsResponse struct {
	Side        session.Side        `json:"side"`
	Term        string              `json:"term"`
	Suggestions []models.Suggestion `json:"suggestions"`
	Loading     bool                `json:"loading"`
	Selected    bool                `json:"selected"`
}

// Suggestions runs a debounced lookup and answers with the side's list as it
// stands afterwards. A lookup superseded by a newer one for the same session
// answers with whatever that newer one has produced so far.
func (h *SessionHandler) Suggestions(c echo.Context) error {
	side, err := session.ParseSide(c.Param("side"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "unknown_side", err.Error())
	}
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	term := c.QueryParam("term")

	if side == session.SideOrigin {
		s.SearchOriginAirports(c.Request().Context(), term)
	} else {
		s.SearchDestinationAirports(c.Request().Context(), term)
	}

	st := s.Snapshot()
	resp := suggestionsResponse{Side: side, Term: term}
	if side == session.SideOrigin {
		resp.Suggestions, resp.Loading, resp.Selected = st.OriginSuggestions, st.OriginLoading, st.OriginSelected
	} else {
		resp.Suggestions, resp.Loading, resp.Selected = st.DestinationSuggestions, st.DestinationLoading, st.DestinationSelected
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) SelectSuggestion(c echo.Context) error {
	side, err := session.ParseSide(c.Param("side"))
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "unknown_side", err.Error())
	}
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}

	var sg models.Suggestion
	if err := c.Bind(&sg); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if sg.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "validation_error", "name is required")
	}

	if side == session.SideOrigin {
		s.SetOrigin(sg)
	} else {
		s.SetDestination(sg)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) ClearSuggestions(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	s.ClearSuggestions()
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Search(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	return h.runSearch(c, s, s.SearchFlights)
}

func (h *SessionHandler) RetrySearch(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	return h.runSearch(c, s, s.RetrySearch)
}

func (h *SessionHandler) runSearch(c echo.Context, s *session.Store, search func(context.Context) error) error {
	// the outcome lands in the session even if this request goes away first
	ctx := context.WithoutCancel(c.Request().Context())

	if err := search(ctx); err != nil {
		var verr models.ValidationError
		if errors.As(err, &verr) {
			return errorJSON(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
		}
		h.logger.Error().Err(err).Msg("search failed")
		return errorJSON(c, http.StatusInternalServerError, "search_error", err.Error())
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

type resultsResponse struct {
	Results       *models.SearchResult `json:"results"`
	TotalResults  int                  `json:"totalResults"`
	SearchLoading bool                 `json:"searchLoading"`
	SearchError   *string              `json:"searchError"`
	HasResults    bool                 `json:"hasResults"`
}

func (h *SessionHandler) Results(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}

	opts, err := parseFilterOptions(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
	}

	st := s.Snapshot()
	results := filter.Apply(st.SearchResults, opts)
	return c.JSON(http.StatusOK, resultsResponse{
		Results:       results,
		TotalResults:  results.Len(),
		SearchLoading: st.SearchLoading,
		SearchError:   st.SearchError,
		HasResults:    st.HasResults,
	})
}

func parseFilterOptions(c echo.Context) (filter.Options, error) {
	opts := filter.Options{
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Airlines:  c.QueryParams()["airline"],
	}
	if !filter.ValidSort(opts.SortBy) {
		return opts, errors.New("unsupported sort_by: " + opts.SortBy)
	}

	var err error
	if opts.PriceMin, err = parsePrice(c, "min_price"); err != nil {
		return opts, err
	}
	if opts.PriceMax, err = parsePrice(c, "max_price"); err != nil {
		return opts, err
	}
	return opts, nil
}

func parsePrice(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}

func (h *SessionHandler) ClearResults(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	s.ClearResults()
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Reset(c echo.Context) error {
	s, err := h.store(c)
	if err != nil {
		return unavailable(c, err)
	}
	s.ResetForm()
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
	})
}
