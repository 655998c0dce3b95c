package filechan

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a channel at open time.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	backoff lockBackoff
}

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		backoff: lockBackoff{min: defaultLockBackoffMin, max: defaultLockBackoffMax},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for channel lifecycle events.
// A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
	}
}

// WithLockBackoff sets the delay bounds between attempts while Lock waits
// for a contended region. Non-positive values keep the defaults.
func WithLockBackoff(lo, hi time.Duration) Option {
	return func(o *options) {
		if lo > 0 {
			o.backoff.min = lo
		}
		if hi > 0 {
			o.backoff.max = hi
		}
		if o.backoff.max < o.backoff.min {
			o.backoff.max = o.backoff.min
		}
	}
}
