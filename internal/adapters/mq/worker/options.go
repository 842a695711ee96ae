package worker

import (
	"time"

	"github.com/okian/fantabrigade/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithReleaser releases a job's coalescing key when a worker picks it up.
func WithReleaser(r Releaser) Option {
	return func(p *Pool) {
		if r != nil {
			p.releaser = r
		}
	}
}

// WithJobTimeout bounds a single recompute.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.jobTimeout = d
		}
	}
}
