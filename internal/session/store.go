// Package session holds the per-tab search state and coordinates the
// suggestion and search fetchers behind it.
//
// Every asynchronous write is tagged with the epoch it was issued under and
// is applied only while that epoch is still current. Searches share one
// epoch; each suggestion side has its own.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/autocomplete"
	"github.com/dharmasatrya/flightsession/internal/flights"
	flog "github.com/dharmasatrya/flightsession/internal/log"
	"github.com/dharmasatrya/flightsession/internal/metrics"
	"github.com/dharmasatrya/flightsession/internal/models"
)

var (
	ErrUnknownField = errors.New("session: unknown form field")
	ErrUnknownSide  = errors.New("session: unknown suggestion side")
	ErrInvalidValue = errors.New("session: invalid field value")
)

type SuggestionFetcher interface {
	Fetch(ctx context.Context, term string, debounce time.Duration) ([]models.Suggestion, error)
	Cleanup()
}

type FlightSearcher interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResult, error)
	Cancel()
}

type Dependency struct {
	OriginSuggestions      SuggestionFetcher
	DestinationSuggestions SuggestionFetcher
	Flights                FlightSearcher
	Debounce               time.Duration
	Logger                 *zerolog.Logger
}

type Store struct {
	fetchers map[Side]SuggestionFetcher
	flights  FlightSearcher
	debounce time.Duration
	logger   zerolog.Logger

	mu            sync.Mutex
	state         State
	searchEpoch   uint64
	suggestEpochs map[Side]uint64
	watchers      map[int]func(State)
	nextWatcher   int
}

func New(dep Dependency) *Store {
	s := &Store{
		fetchers: map[Side]SuggestionFetcher{
			SideOrigin:      dep.OriginSuggestions,
			SideDestination: dep.DestinationSuggestions,
		},
		flights:       dep.Flights,
		debounce:      dep.Debounce,
		state:         initialState(),
		suggestEpochs: map[Side]uint64{},
		watchers:      map[int]func(State){},
	}
	if dep.Logger != nil {
		s.logger = *dep.Logger
	} else {
		s.logger = flog.WithComponent("session")
	}
	return s
}

// mutate applies fn under the lock and, when fn reports a change, hands a
// fresh snapshot to every watcher outside the lock.
func (s *Store) mutate(fn func(st *State) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	var snap State
	var watchers []func(State)
	if changed && len(s.watchers) > 0 {
		snap = s.state.clone()
		watchers = make([]func(State), 0, len(s.watchers))
		for _, w := range s.watchers {
			watchers = append(watchers, w)
		}
	}
	s.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Watch registers fn to receive a snapshot after every state change.
func (s *Store) Watch(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) IsFormValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SearchForm.Validate() == nil
}

func (s *Store) HasResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SearchResults.Len() > 0
}

func (s *Store) SetActiveTab(tab string) {
	s.mutate(func(st *State) bool {
		st.ActiveTab = tab
		return true
	})
}

func (s *Store) UpdateFormField(field Field, value string) error {
	var err error
	s.mutate(func(st *State) bool {
		err = st.setField(field, value)
		return err == nil
	})
	return err
}

func (s *Store) SetOrigin(sg models.Suggestion) {
	s.selectSuggestion(SideOrigin, sg)
}

func (s *Store) SetDestination(sg models.Suggestion) {
	s.selectSuggestion(SideDestination, sg)
}

func (s *Store) selectSuggestion(side Side, sg models.Suggestion) {
	s.mutate(func(st *State) bool {
		if side == SideOrigin {
			st.SearchForm.Origin = sg.Name
			st.SearchForm.OriginCode = sg.Code
		} else {
			st.SearchForm.Destination = sg.Name
			st.SearchForm.DestinationCode = sg.Code
		}
		*st.selected(side) = true
		*st.suggestions(side) = []models.Suggestion{}
		return true
	})
}

func (s *Store) SearchOriginAirports(ctx context.Context, term string) {
	s.searchAirports(ctx, SideOrigin, term)
}

func (s *Store) SearchDestinationAirports(ctx context.Context, term string) {
	s.searchAirports(ctx, SideDestination, term)
}

func (s *Store) searchAirports(ctx context.Context, side Side, term string) {
	if utf8.RuneCountInString(term) < MinTermLength {
		s.mutate(func(st *State) bool {
			// outdate any lookup still running for this side
			s.suggestEpochs[side]++
			*st.suggestions(side) = []models.Suggestion{}
			*st.loading(side) = false
			return true
		})
		return
	}

	var epoch uint64
	s.mutate(func(st *State) bool {
		s.suggestEpochs[side]++
		epoch = s.suggestEpochs[side]
		*st.loading(side) = true
		*st.selected(side) = false
		return true
	})

	suggestions, err := s.fetchers[side].Fetch(ctx, term, s.debounce)
	if errors.Is(err, autocomplete.ErrSuperseded) {
		return
	}

	s.mutate(func(st *State) bool {
		if s.suggestEpochs[side] != epoch {
			return false
		}
		if err != nil {
			s.logger.Error().Err(err).
				Str(flog.FieldSide, string(side)).
				Str(flog.FieldTerm, term).
				Msg("autocomplete failed")
			suggestions = []models.Suggestion{}
		}
		if suggestions == nil {
			suggestions = []models.Suggestion{}
		}
		*st.suggestions(side) = suggestions
		*st.loading(side) = false
		return true
	})
}

// SearchFlights runs a search for the current form. An invalid form leaves
// the state untouched and returns the validation error.
func (s *Store) SearchFlights(ctx context.Context) error {
	var (
		epoch    uint64
		criteria models.SearchCriteria
		validErr error
	)
	s.mutate(func(st *State) bool {
		if validErr = st.SearchForm.Validate(); validErr != nil {
			return false
		}
		s.searchEpoch++
		epoch = s.searchEpoch
		criteria = st.SearchForm
		st.SearchLoading = true
		st.SearchError = nil
		st.SearchResults = models.NewOneWayResult(nil)
		return true
	})
	if validErr != nil {
		return validErr
	}

	result, err := s.flights.Search(ctx, criteria)

	s.mutate(func(st *State) bool {
		if s.searchEpoch != epoch {
			metrics.ObserveStaleResult()
			s.logger.Debug().Uint64(flog.FieldEpoch, epoch).Msg("discarding stale search outcome")
			return false
		}
		st.SearchLoading = false
		switch {
		case err == nil:
			if result == nil {
				result = models.NewOneWayResult(nil)
			}
			st.SearchResults = result
		case errors.Is(err, flights.ErrRequestCancelled):
		default:
			msg := err.Error()
			if msg == "" {
				msg = DefaultSearchError
			}
			st.SearchError = &msg
			s.logger.Warn().Err(err).Uint64(flog.FieldEpoch, epoch).Msg("flight search failed")
		}
		return true
	})
	return nil
}

func (s *Store) RetrySearch(ctx context.Context) error {
	s.mutate(func(st *State) bool {
		st.SearchError = nil
		return true
	})
	return s.SearchFlights(ctx)
}

func (s *Store) ClearResults() {
	s.mutate(func(st *State) bool {
		st.SearchResults = models.NewOneWayResult(nil)
		st.SearchError = nil
		return true
	})
}

func (s *Store) ClearSuggestions() {
	s.mutate(func(st *State) bool {
		st.OriginSuggestions = []models.Suggestion{}
		st.DestinationSuggestions = []models.Suggestion{}
		st.OriginSelected = false
		st.DestinationSelected = false
		return true
	})
}

func (s *Store) ResetForm() {
	s.mutate(func(st *State) bool {
		st.SearchForm = models.DefaultSearchCriteria()
		return true
	})
	s.ClearResults()
	s.ClearSuggestions()
}

// Close releases the fetchers: pending lookups are dropped and in-flight
// requests aborted.
func (s *Store) Close() {
	for _, f := range s.fetchers {
		if f != nil {
			f.Cleanup()
		}
	}
	if s.flights != nil {
		s.flights.Cancel()
	}
}
