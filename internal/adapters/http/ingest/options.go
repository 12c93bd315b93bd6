package ingest

import (
	"time"

	"github.com/eldercare-platform/eldercare/internal/domain/dedupe"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithDeduper drops readings whose reading_id was already accepted.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) {
		s.dedupe = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l.Named("ingest")
	}
}

// WithClock overrides the receive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}
