package database

import "errors"

// ErrNotFound is returned when no crawl with the requested ID exists.
var ErrNotFound = errors.New("crawl not found")
