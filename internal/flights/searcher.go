// Package flights runs flight searches against the remote API and reshapes
// the response for display.
package flights

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/cache"
	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/metrics"
	"github.com/dharmasatrya/flightsession/internal/models"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrRequestCancelled marks a search that was aborted by a newer search or
	// by Cancel. Callers treat it as a no-op rather than a failure.
	ErrRequestCancelled = errors.New("REQUEST_CANCELLED")

	errAborted = errors.New("flights: aborted")
)

type Source interface {
	GetFlights(ctx context.Context, req models.SearchRequest) ([]byte, error)
}

type Config struct {
	Timeout  time.Duration
	Location *time.Location
	Cache    cache.Cache
	Logger   *zerolog.Logger
}

// Searcher keeps at most one search request in flight.
type Searcher struct {
	source     Source
	cache      cache.Cache
	timeout    time.Duration
	normalizer *Normalizer
	logger     zerolog.Logger

	mu    sync.Mutex
	gen   uint64
	abort context.CancelCauseFunc
}

func NewSearcher(source Source, cfg Config) *Searcher {
	s := &Searcher{
		source:  source,
		cache:   cfg.Cache,
		timeout: cfg.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.cache == nil {
		s.cache = cache.NewNoOpCache()
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	} else {
		s.logger = flog.WithComponent("flights")
	}
	s.normalizer = NewNormalizer(cfg.Location, s.logger)
	return s
}

// Search aborts any search still in flight and runs a new one.
func (s *Searcher) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResult, error) {
	body := models.NewSearchRequest(criteria)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.abortLocked()
	reqCtx, abort := context.WithCancelCause(ctx)
	s.abort = abort
	s.mu.Unlock()
	defer abort(nil)
	defer s.release(gen)

	if cached, ok := s.cache.Get(reqCtx, body); ok {
		metrics.ObserveSearch(metrics.OutcomeCacheHit)
		return cached, nil
	}

	callCtx, cancel := context.WithTimeout(reqCtx, s.timeout)
	defer cancel()

	raw, err := s.source.GetFlights(callCtx, body)
	if err != nil {
		if errors.Is(context.Cause(reqCtx), errAborted) {
			metrics.ObserveSearch(metrics.OutcomeCancelled)
			return nil, ErrRequestCancelled
		}
		metrics.ObserveSearch(metrics.OutcomeError)
		return nil, err
	}

	result := s.normalizer.Transform(raw)
	metrics.ObserveSearch(metrics.OutcomeSuccess)

	if err := s.cache.Set(ctx, body, result); err != nil {
		s.logger.Warn().Err(err).Msg("caching search result failed")
	}
	return result, nil
}

// Cancel aborts the in-flight search, if any. Idempotent.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked()
}

func (s *Searcher) abortLocked() {
	if s.abort != nil {
		s.abort(errAborted)
		s.abort = nil
	}
}

func (s *Searcher) release(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.abort = nil
	}
	s.mu.Unlock()
}
