package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/timezone"
)

func sample() []models.FlightOption {
	return []models.FlightOption{
		{ID: "a", Airline: "Pegasus", Price: 1500, DepartureTime: "10:15", ArrivalTime: "11:30", Duration: "1s 15dk"},
		{ID: "b", Airline: "Türk Hava Yolları", Price: 900, DepartureTime: "06:40", ArrivalTime: "08:50", Duration: "2s 10dk"},
		{ID: "c", Airline: "AJet", Price: 1200, DepartureTime: "21:05", ArrivalTime: "22:00", Duration: "0s 55dk"},
	}
}

func ids(flights []models.FlightOption) []string {
	out := make([]string, 0, len(flights))
	for _, f := range flights {
		out = append(out, f.ID)
	}
	return out
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sortBy, order string
		want          []string
	}{
		{"", "", []string{"a", "b", "c"}},
		{"price", "asc", []string{"b", "c", "a"}},
		{"price", "desc", []string{"a", "c", "b"}},
		{"departure", "", []string{"b", "a", "c"}},
		{"arrival", "desc", []string{"c", "a", "b"}},
		{"duration", "asc", []string{"c", "a", "b"}},
		{"airline", "asc", []string{"c", "a", "b"}},
		{"best_value", "", []string{"c", "b", "a"}},
		{"bogus", "asc", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.order, func(t *testing.T) {
			got := Apply(models.NewOneWayResult(sample()), Options{SortBy: tt.sortBy, SortOrder: tt.order})
			assert.Equal(t, tt.want, ids(got.Departures))
		})
	}
}

func TestApply_MissingValuesSortLast(t *testing.T) {
	flights := func() []models.FlightOption {
		unknown := models.FlightOption{
			ID:            "x",
			DepartureTime: timezone.ClockPlaceholder,
			ArrivalTime:   timezone.ClockPlaceholder,
			Duration:      "Süre bilgisi yok",
		}
		return append([]models.FlightOption{unknown}, sample()...)
	}

	tests := []struct {
		sortBy, order string
		want          []string
	}{
		{"departure", "asc", []string{"b", "a", "c", "x"}},
		{"departure", "desc", []string{"c", "a", "b", "x"}},
		{"arrival", "asc", []string{"b", "a", "c", "x"}},
		{"arrival", "desc", []string{"c", "a", "b", "x"}},
		{"duration", "asc", []string{"c", "a", "b", "x"}},
		{"duration", "desc", []string{"b", "a", "c", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.order, func(t *testing.T) {
			got := Apply(models.NewOneWayResult(flights()), Options{SortBy: tt.sortBy, SortOrder: tt.order})
			assert.Equal(t, tt.want, ids(got.Departures))
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := models.NewOneWayResult(sample())
	Apply(in, Options{SortBy: SortPrice})
	assert.Equal(t, []string{"a", "b", "c"}, ids(in.Departures))
}

func TestApply_RoundTripKeepsShape(t *testing.T) {
	in := models.NewRoundTripResult(sample(), sample()[:2])
	got := Apply(in, Options{SortBy: SortPrice, SortOrder: "desc"})

	require.True(t, got.RoundTrip)
	assert.Equal(t, []string{"a", "c", "b"}, ids(got.Departures))
	assert.Equal(t, []string{"a", "b"}, ids(got.Returns))
}

func TestApply_Filters(t *testing.T) {
	lo, hi := 1000.0, 1400.0
	got := Apply(models.NewOneWayResult(sample()), Options{PriceMin: &lo, PriceMax: &hi})
	assert.Equal(t, []string{"c"}, ids(got.Departures))

	got = Apply(models.NewOneWayResult(sample()), Options{Airlines: []string{"pegasus", "ajet"}})
	assert.Equal(t, []string{"a", "c"}, ids(got.Departures))
}

func TestApply_Nil(t *testing.T) {
	got := Apply(nil, Options{SortBy: SortPrice})
	require.NotNil(t, got)
	assert.Empty(t, got.Departures)
}

func TestValidSort(t *testing.T) {
	assert.True(t, ValidSort(""))
	assert.True(t, ValidSort("Price"))
	assert.True(t, ValidSort("best_value"))
	assert.False(t, ValidSort("stops"))
}
