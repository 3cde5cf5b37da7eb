package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/metrics"
	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/ratelimit"
)

const (
	EndpointAutocomplete = "autocomplete"
	EndpointSearch       = "search"

	autocompletePath = "/autocomplete/flight-ticket"
	searchPath       = "/flight-ticket/get-flights"

	maxBodyBytes  = 8 << 20
	maxErrorBytes = 512
)

// Client talks to the remote flight API. Deadlines and cancellation come from
// the caller's context; the http.Client timeout is only an outer bound.
type Client struct {
	base    string
	http    *http.Client
	limiter *ratelimit.EndpointLimiter
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLimiter(l *ratelimit.EndpointLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: flog.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Autocomplete fetches the raw autocomplete envelope for term.
func (c *Client) Autocomplete(ctx context.Context, term string) ([]byte, error) {
	u := c.base + autocompletePath + "?" + url.Values{"term": []string{term}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newError(EndpointAutocomplete, ErrUnavailable, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, EndpointAutocomplete, req)
}

// GetFlights posts a search request and returns the raw flight-list envelope.
func (c *Client) GetFlights(ctx context.Context, body models.SearchRequest) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(EndpointSearch, ErrUnavailable, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, EndpointSearch, req)
}

func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, endpoint); err != nil {
			if ctx.Err() == nil {
				// the limiter refuses up front when the wait would outlive the deadline
				return nil, newError(endpoint, ErrTimeout, 0, "", err)
			}
			return nil, c.classify(ctx, endpoint, err)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(endpoint, "transport_error")
		return nil, c.classify(ctx, endpoint, err)
	}
	defer res.Body.Close()

	metrics.ObserveUpstream(endpoint, statusClass(res.StatusCode))
	c.logger.Debug().
		Str(flog.FieldEndpoint, endpoint).
		Int(flog.FieldStatus, res.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream response")

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))
		return nil, newError(endpoint, ErrStatus, res.StatusCode, strings.TrimSpace(string(snippet)), nil)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, c.classify(ctx, endpoint, err)
	}
	return data, nil
}

func (c *Client) classify(ctx context.Context, endpoint string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newError(endpoint, ErrTimeout, 0, "", err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return newError(endpoint, ErrCancelled, 0, "", err)
	default:
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return newError(endpoint, ErrTimeout, 0, "", err)
		}
		return newError(endpoint, ErrUnavailable, 0, "", err)
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
