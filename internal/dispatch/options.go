package dispatch

import (
	"log/slog"
	"time"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(d *Dispatcher) {
		if maxRetries >= 0 {
			d.maxRetries = uint64(maxRetries)
		}
		if base > 0 {
			d.retryBase = base
		}
	}
}

// WithJobTimeout bounds a single attempt.
func WithJobTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.jobTimeout = timeout
		}
	}
}

// WithLogger replaces the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}
