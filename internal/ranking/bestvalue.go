package ranking

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dharmasatrya/flightsession/internal/models"
)

const (
	PriceWeight    = 0.5
	DurationWeight = 0.3
	StopsWeight    = 0.2
)

// UnknownDurationMinutes is what DurationMinutes reports for a label it cannot
// read.
const UnknownDurationMinutes = 1 << 30

// DurationMinutes reads a "2s 15dk" label back into minutes. Labels it cannot
// read report a very large value so they rank after every real duration.
func DurationMinutes(label string) int {
	fields := strings.Fields(label)
	if len(fields) != 2 || !strings.HasSuffix(fields[0], "s") || !strings.HasSuffix(fields[1], "dk") {
		return UnknownDurationMinutes
	}
	h, err := strconv.Atoi(strings.TrimSuffix(fields[0], "s"))
	if err != nil {
		return UnknownDurationMinutes
	}
	m, err := strconv.Atoi(strings.TrimSuffix(fields[1], "dk"))
	if err != nil {
		return UnknownDurationMinutes
	}
	return h*60 + m
}

// Stops counts connections from the segment list. A flight without segments
// is treated as direct.
func Stops(f models.FlightOption) int {
	if len(f.Segments) <= 1 {
		return 0
	}
	return len(f.Segments) - 1
}

// CalculateScores returns one score per flight, in input order.
func CalculateScores(flights []models.FlightOption) []float64 {
	scores := make([]float64, len(flights))
	if len(flights) == 0 {
		return scores
	}

	maxPrice := findMaxPrice(flights)
	maxDuration := findMaxDuration(flights)

	for i, f := range flights {
		scores[i] = CalculateBestValue(f, maxPrice, maxDuration)
	}
	return scores
}

// Lower score = better value. A zero price means the fare is unknown and
// scores as the most expensive option.
func CalculateBestValue(flight models.FlightOption, maxPrice, maxDuration float64) float64 {
	priceScore := 100.0
	if maxPrice > 0 && flight.Price > 0 {
		priceScore = (flight.Price / maxPrice) * 100
	}

	durationScore := 100.0
	if d := DurationMinutes(flight.Duration); maxDuration > 0 && d != UnknownDurationMinutes {
		durationScore = (float64(d) / maxDuration) * 100
	}

	stopsScore := float64(Stops(flight)) * 15
	score := (priceScore * PriceWeight) + (durationScore * DurationWeight) + (stopsScore * StopsWeight)

	return math.Round(score*100) / 100
}

// SortByBestValue orders flights in place, best value first unless
// descending is set.
func SortByBestValue(flights []models.FlightOption, descending bool) {
	scores := CalculateScores(flights)
	idx := make([]int, len(flights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if descending {
			return scores[idx[i]] > scores[idx[j]]
		}
		return scores[idx[i]] < scores[idx[j]]
	})

	sorted := make([]models.FlightOption, len(flights))
	for i, k := range idx {
		sorted[i] = flights[k]
	}
	copy(flights, sorted)
}

func findMaxPrice(flights []models.FlightOption) float64 {
	maxPrice := 0.0
	for _, f := range flights {
		if f.Price > maxPrice {
			maxPrice = f.Price
		}
	}
	return maxPrice
}

func findMaxDuration(flights []models.FlightOption) float64 {
	maxDuration := 0.0
	for _, f := range flights {
		d := DurationMinutes(f.Duration)
		if d != UnknownDurationMinutes && float64(d) > maxDuration {
			maxDuration = float64(d)
		}
	}
	return maxDuration
}
