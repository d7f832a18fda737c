package youtube

import "errors"

// Sentinel kinds for upstream API errors. Quota and key errors feed the
// credential pool; a gone stream is fatal for the polling session.
var (
	ErrQuotaExceeded = errors.New("api quota exceeded")
	ErrInvalidKey    = errors.New("api key not valid")
	ErrStreamGone    = errors.New("stream has no live chat")
)
