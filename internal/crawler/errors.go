package crawler

import "errors"

// ErrInvalidURL is returned when a URL cannot be parsed as an absolute URL
// with both a scheme and a host.
var ErrInvalidURL = errors.New("invalid URL")
