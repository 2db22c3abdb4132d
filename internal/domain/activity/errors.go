package activity

import (
	"errors"
	"fmt"
)

// Fetch error kinds. A *FetchError always matches exactly one of the first
// three via errors.Is.
var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
	ErrNetworkFailure      = errors.New("network failure")

	ErrInvalidLimit = errors.New("limit must be positive")
)

// FetchError carries the kind of a failed fetch plus the details needed in
// logs. It is never rendered to end users.
type FetchError struct {
	Kind       error
	StatusCode int // set for ErrUpstreamUnavailable
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UpstreamUnavailable reports a non-2xx upstream status.
func UpstreamUnavailable(status int) error {
	return &FetchError{Kind: ErrUpstreamUnavailable, StatusCode: status}
}

// MalformedResponse reports an upstream body that is not a list of events.
func MalformedResponse(err error) error {
	return &FetchError{Kind: ErrMalformedResponse, Err: err}
}

// NetworkFailure reports a transport failure, timeout or cancellation.
func NetworkFailure(err error) error {
	return &FetchError{Kind: ErrNetworkFailure, Err: err}
}

// KindLabel maps an error to a short label for metrics and logs.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, ErrInvalidLimit):
		return "invalid_limit"
	default:
		return "unknown"
	}
}
