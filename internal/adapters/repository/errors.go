package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrDuplicateEvent = errors.New("event already processed")
	ErrNotFound       = errors.New("record not found")
)
