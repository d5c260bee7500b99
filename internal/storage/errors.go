package storage

import "errors"

// ErrNotFound is returned when a requested node or scan is not stored
var ErrNotFound = errors.New("not found")
