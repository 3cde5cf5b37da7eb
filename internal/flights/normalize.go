package flights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharmasatrya/flightsession/internal/models"
	"github.com/dharmasatrya/flightsession/internal/timezone"
	"github.com/dharmasatrya/flightsession/pkg/currency"
)

const (
	UnknownAirline  = "Bilinmeyen Havayolu"
	UnknownDuration = "Süre bilgisi yok"
)

var ErrMalformedFlight = errors.New("flights: malformed flight entry")

type rawFlight struct {
	ID                models.FlexString `json:"id"`
	DepartureAirport  models.FlexString `json:"departureAirport"`
	ArrivalAirport    models.FlexString `json:"arrivalAirport"`
	DepartureDatetime models.FlexString `json:"departureDatetime"`
	ArrivalDatetime   models.FlexString `json:"arrivalDatetime"`
	Duration          json.RawMessage   `json:"duration"`
	ViewPrice         models.FlexFloat  `json:"viewPrice"`
	Fares             json.RawMessage   `json:"fares"`
	AvailableSeats    models.FlexFloat  `json:"availableSeats"`
	BaggageInfo       json.RawMessage   `json:"baggageInfo"`
	ProviderPackage   json.RawMessage   `json:"providerPackage"`
	OtherOptions      json.RawMessage   `json:"otherOptions"`
	Segments          json.RawMessage   `json:"segments"`
}

type rawSegment struct {
	Airline      models.FlexString `json:"airline"`
	FlightNumber models.FlexString `json:"flightNumber"`
}

type rawDuration struct {
	Hours   models.FlexFloat `json:"hours"`
	Minutes models.FlexFloat `json:"minutes"`
}

type rawFares struct {
	ADT struct {
		BaseFare models.FlexFloat `json:"baseFare"`
	} `json:"ADT"`
}

// Normalizer turns get-flights payloads into FlightOptions. Clock strings are
// rendered in loc.
type Normalizer struct {
	loc    *time.Location
	logger zerolog.Logger
}

func NewNormalizer(loc *time.Location, logger zerolog.Logger) *Normalizer {
	if loc == nil {
		loc = timezone.TRT
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Transform decodes a get-flights response. Missing or malformed envelopes
// give an empty one-way result; entries that cannot be decoded are skipped.
func (n *Normalizer) Transform(body []byte) *models.SearchResult {
	departures, returns := n.extract(body)

	deps := n.mapAll(departures, "departure")
	if len(returns) > 0 {
		return models.NewRoundTripResult(deps, n.mapAll(returns, "return"))
	}
	return models.NewOneWayResult(deps)
}

func (n *Normalizer) extract(body []byte) (departures, returns []json.RawMessage) {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil || models.IsJSONNull(env.Data) {
		return nil, nil
	}

	var data models.FlightListData
	if err := json.Unmarshal(env.Data, &data); err != nil || models.IsJSONNull(data.FlightList) {
		return nil, nil
	}

	var list models.FlightList
	if err := json.Unmarshal(data.FlightList, &list); err != nil {
		return nil, nil
	}

	return rawArray(list.Departure), rawArray(list.Return)
}

func (n *Normalizer) mapAll(items []json.RawMessage, leg string) []models.FlightOption {
	out := make([]models.FlightOption, 0, len(items))
	for i, item := range items {
		flight, err := n.MapFlight(item)
		if err != nil {
			n.logger.Warn().Err(err).Str("leg", leg).Int("index", i).Msg("skipping flight entry")
			continue
		}
		out = append(out, flight)
	}
	return out
}

// MapFlight maps one raw entry, which may be an object or a JSON-encoded
// string holding one.
func (n *Normalizer) MapFlight(item json.RawMessage) (models.FlightOption, error) {
	obj, err := unwrapEntry(item)
	if err != nil {
		return models.FlightOption{}, err
	}

	var f rawFlight
	if err := json.Unmarshal(obj, &f); err != nil {
		return models.FlightOption{}, fmt.Errorf("%w: %v", ErrMalformedFlight, err)
	}

	segments := rawArray(f.Segments)
	airline, flightNumber := UnknownAirline, ""
	if len(segments) > 0 {
		var seg rawSegment
		if err := json.Unmarshal(segments[0], &seg); err == nil {
			if seg.Airline != "" {
				airline = string(seg.Airline)
			}
			flightNumber = string(seg.FlightNumber)
		}
	}

	price := priceOf(f)

	return models.FlightOption{
		ID:              string(f.ID),
		Origin:          string(f.DepartureAirport),
		Destination:     string(f.ArrivalAirport),
		OriginCode:      string(f.DepartureAirport),
		DestinationCode: string(f.ArrivalAirport),
		DepartureTime:   timezone.FormatClock(string(f.DepartureDatetime), n.loc),
		ArrivalTime:     timezone.FormatClock(string(f.ArrivalDatetime), n.loc),
		Duration:        FormatDuration(f.Duration),
		Airline:         airline,
		FlightNumber:    flightNumber,
		Price:           price,
		PriceFormatted:  currency.FormatTRY(price),
		AvailableSeats:  int(f.AvailableSeats),
		BaggageInfo:     nullToNil(f.BaggageInfo),
		ProviderPackage: nullToNil(f.ProviderPackage),
		OtherOptions:    rawArray(f.OtherOptions),
		Segments:        segments,
		ReturnFlight:    nil,
	}, nil
}

// FormatDuration renders {hours, minutes} as "2s 15dk". Anything that is not
// an object gives the unknown-duration text.
func FormatDuration(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return UnknownDuration
	}
	var d rawDuration
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return UnknownDuration
	}
	return d.Hours.Text() + "s " + d.Minutes.Text() + "dk"
}

// priceOf prefers viewPrice, then fares.ADT.baseFare. Zero counts as absent.
func priceOf(f rawFlight) float64 {
	if f.ViewPrice != 0 {
		return float64(f.ViewPrice)
	}
	var fares rawFares
	if err := json.Unmarshal(f.Fares, &fares); err == nil && fares.ADT.BaseFare != 0 {
		return float64(fares.ADT.BaseFare)
	}
	return 0
}

func unwrapEntry(item json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 {
		return nil, ErrMalformedFlight
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFlight, err)
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
	}

	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrMalformedFlight
	}
	return trimmed, nil
}

func rawArray(raw json.RawMessage) []json.RawMessage {
	out := []json.RawMessage{}
	if models.IsJSONNull(raw) {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	return append(out, items...)
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if models.IsJSONNull(raw) {
		return nil
	}
	return raw
}
