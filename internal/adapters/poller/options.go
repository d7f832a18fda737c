package poller

import (
	"time"

	"github.com/okian/fanscore/pkg/logger"
)

// Option applies a configuration option to the Poller.
type Option func(*Poller)

// WithDefaultInterval sets the wait between pages when the upstream
// response carries no polling interval.
func WithDefaultInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.defaultInterval = interval
		}
	}
}

// WithBackoff sets the wait after a failed page before retrying it.
func WithBackoff(backoff time.Duration) Option {
	return func(p *Poller) {
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

// WithTitleRecheckInterval sets how often the broadcast title is
// re-fetched to pick up a show day change.
func WithTitleRecheckInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.titleRecheck = interval
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(log logger.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}
