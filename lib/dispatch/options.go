package dispatch

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBackoffBase = 10 * time.Millisecond
	defaultBackoffMax  = time.Second
)

type options struct {
	limiter     *rate.Limiter
	backoffBase time.Duration
	backoffMax  time.Duration
}

func defaultOptions() options {
	return options{
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
}

// Option configures a dispatcher beyond its common.DispatcherConfig.
type Option func(*options)

// WithLimiter makes the dispatcher wait on l before every operation instead of
// the limiter built from RateLimit and RateBurst. Passing the same limiter to
// several dispatchers caps their combined throughput.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithBackoff sets the delay before the first acquire retry and its upper bound.
// The delay doubles with every retry and is jittered.
func WithBackoff(base, max time.Duration) Option {
	return func(o *options) {
		if base > 0 {
			o.backoffBase = base
		}
		if max >= base {
			o.backoffMax = max
		}
	}
}
