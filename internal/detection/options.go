package detection

import (
	"math/rand/v2"
	"time"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Option configures a Detector.
type Option func(*Detector)

// WithPublisher sends events to p instead of only logging them.
func WithPublisher(p Publisher) Option {
	return func(d *Detector) {
		d.publisher = p
	}
}

// WithStore persists events raised for platform users.
func WithStore(s EventStore) Option {
	return func(d *Detector) {
		d.store = s
	}
}

// WithInterval sets the tick period.
func WithInterval(interval time.Duration) Option {
	return func(d *Detector) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithProbability sets the chance of an event per tick, clamped to [0,1].
func WithProbability(p float64) Option {
	return func(d *Detector) {
		d.probability = min(max(p, 0), 1)
	}
}

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(d *Detector) {
		d.rng = r
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(newID func() string) Option {
	return func(d *Detector) {
		d.newID = newID
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		d.logger = l.Named("detection")
	}
}
