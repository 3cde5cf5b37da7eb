package models

import "encoding/json"

// Envelope is the outer shape shared by both upstream endpoints. Data stays
// raw so a malformed payload degrades instead of failing the whole decode.
type Envelope struct {
	Data json.RawMessage `json:"data"`
}

type FlightListData struct {
	FlightList json.RawMessage `json:"flightList"`
}

type FlightList struct {
	Departure json.RawMessage `json:"departure"`
	Return    json.RawMessage `json:"return"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
