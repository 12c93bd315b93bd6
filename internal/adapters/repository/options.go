package repository

import (
	"time"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Default pool settings.
const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
	defaultConnMaxLife  = 30 * time.Minute
)

// Option applies a configuration option to the PostgresStore.
type Option func(*PostgresStore)

// WithMaxOpenConns caps open connections.
func WithMaxOpenConns(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxOpen = n
		}
	}
}

// WithMaxIdleConns caps idle connections.
func WithMaxIdleConns(n int) Option {
	return func(s *PostgresStore) {
		if n >= 0 {
			s.maxIdle = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(c Clock) Option {
	return func(s *PostgresStore) {
		if c != nil {
			s.now = c
		}
	}
}
