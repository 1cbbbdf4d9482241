package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert collides with the unique
// email index. A concurrent signup race surfaces here rather than in the
// pre-insert lookup.
var ErrDuplicateEmail = errors.New("email already in use")
