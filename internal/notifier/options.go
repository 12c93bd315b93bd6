package notifier

import (
	"math/rand/v2"
	"time"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// Option configures a Notifier.
type Option func(*Notifier)

// WithSource consumes events from s.
func WithSource(s Source) Option {
	return func(n *Notifier) {
		n.source = s
	}
}

// WithMQTT also publishes every event over MQTT.
func WithMQTT(c Channel) Option {
	return func(n *Notifier) {
		n.mqtt = c
	}
}

// WithAlerts marks persisted alerts as sent after dispatch.
func WithAlerts(a AlertMarker) Option {
	return func(n *Notifier) {
		n.alerts = a
	}
}

// WithInterval sets the retry pause after a failed poll and the simulation tick.
func WithInterval(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.interval = interval
		}
	}
}

// WithProbability sets the simulation's chance of a send per tick.
func WithProbability(p float64) Option {
	return func(n *Notifier) {
		n.probability = min(max(p, 0), 1)
	}
}

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(n *Notifier) {
		n.rng = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		n.logger = l.Named("notifier")
	}
}
