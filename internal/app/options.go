package service

import (
	"time"

	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	"github.com/eldercare-platform/eldercare/internal/adapters/session"
	"github.com/eldercare-platform/eldercare/internal/domain/scoring"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOffline switches the service into offline mode.
func WithOffline(offline bool) Option {
	return func(s *Service) {
		s.offline = offline
	}
}

// WithStore sets the relational store. Without one, online operations fail with ErrStoreUnavailable.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessions sets the token store.
func WithSessions(store session.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithTokenTTL sets the lifetime of tokens issued by the default in-memory session store.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithDeviceCacheSize bounds the device lookup cache.
func WithDeviceCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.deviceCacheSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScorer replaces the scorer used by ImportRiskScores.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}
