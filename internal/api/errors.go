package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("flight api: host unreachable or transport failure")
	ErrTimeout     = errors.New("flight api: request timed out")
	ErrStatus      = errors.New("flight api: unexpected status")
	ErrCancelled   = errors.New("flight api: request cancelled")
)

// Error carries the endpoint and status next to one of the sentinels above.
// Both the sentinel and the underlying cause are reachable with errors.Is.
type Error struct {
	Endpoint string
	Sentinel error
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Endpoint, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func newError(endpoint string, sentinel error, status int, body string, err error) *Error {
	return &Error{
		Endpoint: endpoint,
		Sentinel: sentinel,
		Status:   status,
		Body:     body,
		Err:      err,
	}
}
