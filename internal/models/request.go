package models

type Suggestion struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type SearchCriteria struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	OriginCode      string `json:"originCode"`
	DestinationCode string `json:"destinationCode"`
	DepartureDate   string `json:"departureDate"`
	ReturnDate      string `json:"returnDate"`
	Passengers      int    `json:"passengers"`
}

func DefaultSearchCriteria() SearchCriteria {
	return SearchCriteria{Passengers: 1}
}

// Validate reports the first reason the criteria cannot be searched.
func (c SearchCriteria) Validate() error {
	if c.Origin == "" {
		return ErrMissingOrigin
	}
	if c.Destination == "" {
		return ErrMissingDestination
	}
	if c.DepartureDate == "" {
		return ErrMissingDepartureDate
	}
	if c.Origin == c.Destination {
		return ErrSameOriginDestination
	}
	return nil
}

// SearchRequest is the get-flights request body.
type SearchRequest struct {
	DepartureDate string            `json:"departure_date"`
	Destination   string            `json:"destination"`
	Origin        string            `json:"origin"`
	Passengers    map[string]string `json:"passengers"`
	ReturnDate    *string           `json:"return_date,omitempty"`
}

// NewSearchRequest builds the request body. Codes win over display names and
// the passenger count is always a single adult.
func NewSearchRequest(c SearchCriteria) SearchRequest {
	req := SearchRequest{
		DepartureDate: c.DepartureDate,
		Destination:   firstNonEmpty(c.DestinationCode, c.Destination),
		Origin:        firstNonEmpty(c.OriginCode, c.Origin),
		Passengers:    map[string]string{"ADT": "1"},
	}
	if c.ReturnDate != "" {
		rd := c.ReturnDate
		req.ReturnDate = &rd
	}
	return req
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin         ValidationError = "origin is required"
	ErrMissingDestination    ValidationError = "destination is required"
	ErrMissingDepartureDate  ValidationError = "departure_date is required"
	ErrSameOriginDestination ValidationError = "origin and destination must differ"
)
