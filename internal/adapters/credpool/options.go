package credpool

import (
	"time"

	"github.com/okian/fanscore/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithProbeInterval sets how often inactive credentials are re-probed.
func WithProbeInterval(interval time.Duration) Option {
	return func(p *Pool) {
		if interval > 0 {
			p.probeInterval = interval
		}
	}
}

// WithProbeFunc sets the call used to test whether an inactive credential
// has recovered.
func WithProbeFunc(probe ProbeFunc) Option {
	return func(p *Pool) {
		if probe != nil {
			p.probe = probe
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(log logger.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}
