package repository

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/okian/fantabrigade/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	logger logger.Logger
	newID  func() (string, error)
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		newID: func() (string, error) { return gonanoid.New() },
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("repository")
	}
	return o
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIDGenerator overrides how competitor and squad ids are generated.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
