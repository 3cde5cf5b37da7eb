package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dharmasatrya/flightsession/internal/models"
)

const (
	DefaultTab         = "flight"
	DefaultSearchError = "Arama sırasında bir hata oluştu"
	MinTermLength      = 2
)

type Side string

const (
	SideOrigin      Side = "origin"
	SideDestination Side = "destination"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(s)) {
	case SideOrigin:
		return SideOrigin, nil
	case SideDestination:
		return SideDestination, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
	}
}

type Field string

const (
	FieldOrigin          Field = "origin"
	FieldDestination     Field = "destination"
	FieldOriginCode      Field = "originCode"
	FieldDestinationCode Field = "destinationCode"
	FieldDepartureDate   Field = "departureDate"
	FieldReturnDate      Field = "returnDate"
	FieldPassengers      Field = "passengers"
)

// State is a point-in-time copy of everything the UI renders.
type State struct {
	ActiveTab              string                `json:"activeTab"`
	SearchForm             models.SearchCriteria `json:"searchForm"`
	OriginSuggestions      []models.Suggestion   `json:"originSuggestions"`
	DestinationSuggestions []models.Suggestion   `json:"destinationSuggestions"`
	OriginLoading          bool                  `json:"originLoading"`
	DestinationLoading     bool                  `json:"destinationLoading"`
	OriginSelected         bool                  `json:"originSelected"`
	DestinationSelected    bool                  `json:"destinationSelected"`
	SearchResults          *models.SearchResult  `json:"searchResults"`
	SearchLoading          bool                  `json:"searchLoading"`
	SearchError            *string               `json:"searchError"`
	IsFormValid            bool                  `json:"isFormValid"`
	HasResults             bool                  `json:"hasResults"`
}

func initialState() State {
	return State{
		ActiveTab:              DefaultTab,
		SearchForm:             models.DefaultSearchCriteria(),
		OriginSuggestions:      []models.Suggestion{},
		DestinationSuggestions: []models.Suggestion{},
		SearchResults:          models.NewOneWayResult(nil),
	}
}

func (st *State) clone() State {
	out := *st
	out.OriginSuggestions = append([]models.Suggestion{}, st.OriginSuggestions...)
	out.DestinationSuggestions = append([]models.Suggestion{}, st.DestinationSuggestions...)
	out.SearchResults = st.SearchResults.Clone()
	if st.SearchError != nil {
		msg := *st.SearchError
		out.SearchError = &msg
	}
	out.IsFormValid = st.SearchForm.Validate() == nil
	out.HasResults = st.SearchResults.Len() > 0
	return out
}

func (st *State) suggestions(side Side) *[]models.Suggestion {
	if side == SideOrigin {
		return &st.OriginSuggestions
	}
	return &st.DestinationSuggestions
}

func (st *State) loading(side Side) *bool {
	if side == SideOrigin {
		return &st.OriginLoading
	}
	return &st.DestinationLoading
}

func (st *State) selected(side Side) *bool {
	if side == SideOrigin {
		return &st.OriginSelected
	}
	return &st.DestinationSelected
}

func (st *State) setField(field Field, value string) error {
	form := &st.SearchForm
	switch field {
	case FieldOrigin:
		form.Origin = value
	case FieldDestination:
		form.Destination = value
	case FieldOriginCode:
		form.OriginCode = value
	case FieldDestinationCode:
		form.DestinationCode = value
	case FieldDepartureDate:
		form.DepartureDate = value
	case FieldReturnDate:
		form.ReturnDate = value
	case FieldPassengers:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return fmt.Errorf("%w: passengers must be a positive integer, got %q", ErrInvalidValue, value)
		}
		form.Passengers = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}
