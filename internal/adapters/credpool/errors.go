package credpool

import "errors"

// Sentinel kinds for credential pool errors.
var (
	ErrNoCredentials = errors.New("no active credentials")
)
