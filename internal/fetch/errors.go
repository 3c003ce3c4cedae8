package fetch

import (
	"errors"
	"fmt"
)

// Reason classifies why a page could not be fetched.
type Reason string

const (
	// ReasonInvalidURL means the URL could not be parsed or lacks a scheme or host.
	ReasonInvalidURL Reason = "invalid_url"

	// ReasonRequest means the request failed before a response was read.
	ReasonRequest Reason = "request"

	// ReasonStatus means the server returned a non-2xx status code.
	ReasonStatus Reason = "status"

	// ReasonContentType means the response was not HTML.
	ReasonContentType Reason = "content_type"

	// ReasonEmpty means the response body was empty.
	ReasonEmpty Reason = "empty"

	// ReasonTooLarge means the body exceeded the character ceiling.
	ReasonTooLarge Reason = "too_large"
)

// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
// Expected format is "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Error is returned by FetchHTML for every failure.
//
// Design decision: A single error type with a Reason field rather than one
// sentinel per failure because:
//  1. The crawler handles all failures identically, so one errors.As suffices
//  2. Metrics and logs can label failures by Reason without a type switch
//  3. The URL and status code travel with the error
type Error struct {
	// URL is the URL that was requested.
	URL string

	// Reason classifies the failure.
	Reason Reason

	// StatusCode is the HTTP status for ReasonStatus, 0 otherwise.
	StatusCode int

	// ContentType is the received media type for ReasonContentType.
	ContentType string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	case ReasonContentType:
		return fmt.Sprintf("fetch %s: content type %q is not HTML", e.URL, e.ContentType)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the Reason carried by err, or "" when err is not a *Error.
func ReasonOf(err error) Reason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}
