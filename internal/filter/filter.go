package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/ranking"
)

const (
	SortPrice     = "price"
	SortDeparture = "departure"
	SortArrival   = "arrival"
	SortDuration  = "duration"
	SortAirline   = "airline"
	SortBestValue = "best_value"
)

// Options narrows and orders a result set for display. The zero value keeps
// the upstream order untouched.
type Options struct {
	SortBy    string
	SortOrder string
	PriceMin  *float64
	PriceMax  *float64
	Airlines  []string
}

// Apply returns a filtered, ordered copy of result. Both legs of a round trip
// get the same treatment; the result shape is preserved.
func Apply(result *models.SearchResult, opts Options) *models.SearchResult {
	out := result.Clone()
	if out == nil {
		return models.NewOneWayResult(nil)
	}

	out.Departures = applySort(applyFilters(out.Departures, opts), opts.SortBy, opts.SortOrder)
	if out.Returns != nil {
		out.Returns = applySort(applyFilters(out.Returns, opts), opts.SortBy, opts.SortOrder)
	}
	return out
}

func applyFilters(flights []models.FlightOption, opts Options) []models.FlightOption {
	if opts.PriceMin == nil && opts.PriceMax == nil && len(opts.Airlines) == 0 {
		return flights
	}

	result := make([]models.FlightOption, 0, len(flights))
	for _, f := range flights {
		if matches(f, opts) {
			result = append(result, f)
		}
	}
	return result
}

func matches(f models.FlightOption, opts Options) bool {
	if opts.PriceMin != nil && f.Price < *opts.PriceMin {
		return false
	}
	if opts.PriceMax != nil && f.Price > *opts.PriceMax {
		return false
	}

	if len(opts.Airlines) > 0 {
		for _, airline := range opts.Airlines {
			if strings.EqualFold(f.Airline, airline) {
				return true
			}
		}
		return false
	}
	return true
}

func applySort(flights []models.FlightOption, sortBy, sortOrder string) []models.FlightOption {
	if len(flights) < 2 || sortBy == "" {
		return flights
	}

	ascending := strings.ToLower(sortOrder) != "desc"

	var less func(a, b models.FlightOption) bool
	switch strings.ToLower(sortBy) {
	case SortPrice:
		less = func(a, b models.FlightOption) bool { return a.Price < b.Price }
	case SortDeparture:
		less = byKey(func(f models.FlightOption) (int, bool) { return clockMinutes(f.DepartureTime) }, ascending)
	case SortArrival:
		less = byKey(func(f models.FlightOption) (int, bool) { return clockMinutes(f.ArrivalTime) }, ascending)
	case SortDuration:
		less = byKey(durationKey, ascending)
	case SortAirline:
		less = func(a, b models.FlightOption) bool { return a.Airline < b.Airline }
	case SortBestValue:
		ranking.SortByBestValue(flights, !ascending)
		return flights
	default:
		return flights
	}

	sort.SliceStable(flights, func(i, j int) bool {
		if ascending {
			return less(flights[i], flights[j])
		}
		return less(flights[j], flights[i])
	})
	return flights
}

// byKey orders by an integer key. Flights without a key go last in either
// direction.
func byKey(key func(models.FlightOption) (int, bool), ascending bool) func(a, b models.FlightOption) bool {
	return func(a, b models.FlightOption) bool {
		ka, okA := key(a)
		kb, okB := key(b)
		if okA != okB {
			// less is called with swapped arguments when descending
			return okA == ascending
		}
		return ka < kb
	}
}

func durationKey(f models.FlightOption) (int, bool) {
	d := ranking.DurationMinutes(f.Duration)
	return d, d != ranking.UnknownDurationMinutes
}

// clockMinutes reads an "HH:MM" label. The "--:--" placeholder and anything
// else unreadable reports false.
func clockMinutes(label string) (int, bool) {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// ValidSort reports whether sortBy names a supported ordering. Empty means
// upstream order.
func ValidSort(sortBy string) bool {
	switch strings.ToLower(sortBy) {
	case "", SortPrice, SortDeparture, SortArrival, SortDuration, SortAirline, SortBestValue:
		return true
	}
	return false
}
