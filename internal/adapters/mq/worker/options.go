package worker

import (
	"sync/atomic"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName names the worker in its logger.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCounters makes the worker count forwarded and failed readings into
// shared counters, so a pool can report totals.
func WithCounters(processed, failed *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		if processed != nil && failed != nil {
			w.processed, w.failed = processed, failed
		}
	}
}
