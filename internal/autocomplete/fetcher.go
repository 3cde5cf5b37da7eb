// Package autocomplete debounces airport-name lookups against the flight API.
//
// A Fetcher keeps at most one query alive. Starting a new query discards the
// pending one (it returns ErrSuperseded without touching the network) and
// aborts the one in flight (it resolves to an empty list).
package autocomplete

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/metrics"
	"github.com/dharmasatrya/flightsession/internal/models"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultTimeout  = 5 * time.Second
)

var (
	// ErrSuperseded is returned by a call that was replaced by a newer one (or
	// by Cleanup) before its debounce interval elapsed.
	ErrSuperseded = errors.New("autocomplete: superseded by a newer query")

	errAborted = errors.New("autocomplete: aborted")
)

type Source interface {
	Autocomplete(ctx context.Context, term string) ([]byte, error)
}

type Config struct {
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *zerolog.Logger
}

type Fetcher struct {
	source   Source
	debounce time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	pending chan struct{}
	abort   context.CancelCauseFunc
}

func NewFetcher(source Source, cfg Config) *Fetcher {
	f := &Fetcher{
		source:   source,
		debounce: cfg.Debounce,
		timeout:  cfg.Timeout,
	}
	if f.debounce <= 0 {
		f.debounce = DefaultDebounce
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if cfg.Logger != nil {
		f.logger = *cfg.Logger
	} else {
		f.logger = flog.WithComponent("autocomplete")
	}
	return f
}

// Fetch waits out the debounce interval and then queries the API for term.
// A debounce <= 0 uses the fetcher default.
func (f *Fetcher) Fetch(ctx context.Context, term string, debounce time.Duration) ([]models.Suggestion, error) {
	if debounce <= 0 {
		debounce = f.debounce
	}

	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.discardPendingLocked()
	f.abortInflightLocked()
	discarded := make(chan struct{})
	f.pending = discarded
	f.mu.Unlock()

	timer := time.NewTimer(debounce)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-discarded:
		metrics.ObserveAutocomplete(metrics.OutcomeSuperseded)
		return nil, ErrSuperseded
	case <-ctx.Done():
		f.mu.Lock()
		if f.pending == discarded {
			f.pending = nil
		}
		f.mu.Unlock()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	if f.gen != gen {
		// the timer fired in the same instant a newer call arrived
		f.mu.Unlock()
		metrics.ObserveAutocomplete(metrics.OutcomeSuperseded)
		return nil, ErrSuperseded
	}
	f.pending = nil
	reqCtx, abort := context.WithCancelCause(ctx)
	f.abort = abort
	f.mu.Unlock()
	defer abort(nil)

	callCtx, cancel := context.WithTimeout(reqCtx, f.timeout)
	defer cancel()

	body, err := f.source.Autocomplete(callCtx, term)

	f.mu.Lock()
	if f.gen == gen {
		f.abort = nil
	}
	f.mu.Unlock()

	if err != nil {
		if errors.Is(context.Cause(reqCtx), errAborted) {
			f.logger.Debug().Str(flog.FieldTerm, term).Msg("autocomplete request aborted")
			metrics.ObserveAutocomplete(metrics.OutcomeCancelled)
			return []models.Suggestion{}, nil
		}
		metrics.ObserveAutocomplete(metrics.OutcomeError)
		return nil, err
	}

	metrics.ObserveAutocomplete(metrics.OutcomeSuccess)
	return decodeSuggestions(body), nil
}

// Cleanup drops the pending call and aborts the in-flight request. Safe to
// call repeatedly and when nothing is outstanding.
func (f *Fetcher) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.discardPendingLocked()
	f.abortInflightLocked()
}

func (f *Fetcher) discardPendingLocked() {
	if f.pending != nil {
		close(f.pending)
		f.pending = nil
	}
}

func (f *Fetcher) abortInflightLocked() {
	if f.abort != nil {
		f.abort(errAborted)
		f.abort = nil
	}
}

type rawSuggestion struct {
	Name models.FlexString `json:"name"`
	Code models.FlexString `json:"code"`
}

// decodeSuggestions never fails: an absent or malformed envelope yields an
// empty list and non-object items are skipped.
func decodeSuggestions(body []byte) []models.Suggestion {
	out := []models.Suggestion{}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil || models.IsJSONNull(env.Data) {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return out
	}

	for _, item := range items {
		var raw rawSuggestion
		if models.IsJSONNull(item) {
			continue
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		out = append(out, models.Suggestion{Name: string(raw.Name), Code: string(raw.Code)})
	}
	return out
}
