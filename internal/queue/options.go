package queue

import (
	"time"

	"github.com/sirupsen/logrus"
)

type options struct {
	Logger      *logrus.Logger
	Persister   Persister
	Clock       func() time.Time
	Counters    []string
	TokenPrefix string
}

// Option applies configuration to the queue manager.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:      logrus.StandardLogger(),
		Clock:       time.Now,
		TokenPrefix: "T",
	}
}

// WithLogger injects the application logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithPersister sets the write-through record store. Without one the queue
// lives in memory only.
func WithPersister(p Persister) Option {
	return func(o *options) {
		o.Persister = p
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.Clock = now
	}
}

// WithCounters restricts call-next to the named counters.
func WithCounters(counters ...string) Option {
	return func(o *options) {
		o.Counters = append([]string(nil), counters...)
	}
}

func WithTokenPrefix(prefix string) Option {
	return func(o *options) {
		o.TokenPrefix = prefix
	}
}
