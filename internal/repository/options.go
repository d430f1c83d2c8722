package repository

import (
	"context"
	"time"
)

type Option func(*options)

type options struct {
	queryTimeout time.Duration
}

// WithQueryTimeout bounds every store call made by the repository.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.queryTimeout = d
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withTimeout leaves ctx alone when no timeout is configured.
func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.queryTimeout)
}
