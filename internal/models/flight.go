package models

import "encoding/json"

type FlightOption struct {
	ID              string            `json:"id"`
	Origin          string            `json:"origin"`
	Destination     string            `json:"destination"`
	OriginCode      string            `json:"originCode"`
	DestinationCode string            `json:"destinationCode"`
	DepartureTime   string            `json:"departureTime"`
	ArrivalTime     string            `json:"arrivalTime"`
	Duration        string            `json:"duration"`
	Airline         string            `json:"airline"`
	FlightNumber    string            `json:"flightNumber"`
	Price           float64           `json:"price"`
	PriceFormatted  string            `json:"priceFormatted"`
	AvailableSeats  int               `json:"availableSeats"`
	BaggageInfo     json.RawMessage   `json:"baggageInfo,omitempty"`
	ProviderPackage json.RawMessage   `json:"providerPackage,omitempty"`
	OtherOptions    []json.RawMessage `json:"otherOptions"`
	Segments        []json.RawMessage `json:"segments"`
	ReturnFlight    *FlightOption     `json:"returnFlight"`
}

// SearchResult holds either a flat one-way list or a departures/returns pair.
// RoundTrip is set only when the API returned at least one return-leg flight.
type SearchResult struct {
	Departures []FlightOption
	Returns    []FlightOption
	RoundTrip  bool
}

func NewOneWayResult(departures []FlightOption) *SearchResult {
	if departures == nil {
		departures = []FlightOption{}
	}
	return &SearchResult{Departures: departures}
}

func NewRoundTripResult(departures, returns []FlightOption) *SearchResult {
	if departures == nil {
		departures = []FlightOption{}
	}
	return &SearchResult{Departures: departures, Returns: returns, RoundTrip: true}
}

func (r *SearchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Departures) + len(r.Returns)
}

func (r *SearchResult) Clone() *SearchResult {
	if r == nil {
		return nil
	}
	out := &SearchResult{RoundTrip: r.RoundTrip}
	out.Departures = append([]FlightOption(nil), r.Departures...)
	if r.Returns != nil {
		out.Returns = append([]FlightOption(nil), r.Returns...)
	}
	return out
}

type roundTripJSON struct {
	Departures []FlightOption `json:"departures"`
	Returns    []FlightOption `json:"returns"`
}

// MarshalJSON keeps the two result shapes apart on the wire: a bare array for
// one-way results and an object for round trips.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	deps := r.Departures
	if deps == nil {
		deps = []FlightOption{}
	}
	if !r.RoundTrip {
		return json.Marshal(deps)
	}
	rets := r.Returns
	if rets == nil {
		rets = []FlightOption{}
	}
	return json.Marshal(roundTripJSON{Departures: deps, Returns: rets})
}

func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var flat []FlightOption
	if err := json.Unmarshal(data, &flat); err == nil {
		*r = SearchResult{Departures: flat}
		if r.Departures == nil {
			r.Departures = []FlightOption{}
		}
		return nil
	}

	var pair roundTripJSON
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	*r = SearchResult{Departures: pair.Departures, Returns: pair.Returns, RoundTrip: true}
	return nil
}
