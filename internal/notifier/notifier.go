// Package notifier dispatches detection events. Dispatch is a stub: every event
// is logged as sent and, when a broker is configured, published over MQTT.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/eldercare-platform/eldercare/internal/adapters/mq/stream"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Default loop settings.
const (
	defaultInterval    = 5 * time.Second
	defaultProbability = 0.05
)

// Dispatch channels, used as metric labels.
const (
	ChannelLog  = "log"
	ChannelMQTT = "mqtt"
)

// Source yields batches of events. An empty batch means nothing arrived in time.
type Source interface {
	Read(ctx context.Context) ([]stream.Message, error)
}

// Channel is an outbound delivery channel.
type Channel interface {
	Publish(ctx context.Context, ev model.DetectionEvent) error
}

// AlertMarker records that an alert went out.
type AlertMarker interface {
	MarkAlertSent(ctx context.Context, alertID int64) error
}

// Notifier consumes and dispatches events.
type Notifier struct {
	source      Source
	mqtt        Channel
	alerts      AlertMarker
	interval    time.Duration
	probability float64
	rng         *rand.Rand
	logger      logger.Logger
}

// New creates a notifier. Without a source Run falls back to a simulation loop.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		interval:    defaultInterval,
		probability: defaultProbability,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run dispatches until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) error {
	if n.source == nil {
		return n.simulate(ctx)
	}
	n.logger.Info(ctx, "starting dispatch loop")
	for {
		if ctx.Err() != nil {
			return nil
		}
		processed, err := n.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			n.logger.Error(ctx, "poll failed", logger.Error(err), logger.Int("processed", processed))
			metrics.RecordErrorByComponent("notifier", "poll_error")
			if !sleep(ctx, n.interval) {
				return nil
			}
		}
	}
}

// Poll reads one batch and dispatches every decoded event.
// It returns the number of events dispatched.
func (n *Notifier) Poll(ctx context.Context) (int, error) {
	msgs, readErr := n.source.Read(ctx)
	var errs []error
	if readErr != nil {
		errs = append(errs, readErr)
	}
	for _, m := range msgs {
		if err := n.Dispatch(ctx, m.Event); err != nil {
			errs = append(errs, fmt.Errorf("dispatch %s: %w", m.ID, err))
		}
	}
	return len(msgs), errors.Join(errs...)
}

// Dispatch sends ev over every configured channel and marks its alert as sent.
// The log channel always succeeds; other failures are returned, not retried.
func (n *Notifier) Dispatch(ctx context.Context, ev model.DetectionEvent) error {
	n.logger.Info(ctx, "simulated sending alert",
		logger.String("event_id", ev.ID),
		logger.String("subject_id", ev.SubjectID),
		logger.String("type", ev.Type),
		logger.String("severity", ev.Severity))
	metrics.RecordNotification(ChannelLog, ev.Severity)

	var errs []error
	if n.mqtt != nil {
		if err := n.mqtt.Publish(ctx, ev); err != nil {
			metrics.RecordErrorByComponent("notifier", "mqtt_error")
			errs = append(errs, err)
		} else {
			metrics.RecordNotification(ChannelMQTT, ev.Severity)
		}
	}
	if ev.AlertID != 0 && n.alerts != nil {
		if err := n.alerts.MarkAlertSent(ctx, ev.AlertID); err != nil {
			errs = append(errs, fmt.Errorf("mark alert %d sent: %w", ev.AlertID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) simulate(ctx context.Context) error {
	n.logger.Info(ctx, "no event source configured, simulating dispatch")
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n.rng.Float64() < n.probability {
				n.logger.Info(ctx, "simulated sending critical alert")
				metrics.RecordNotification(ChannelLog, model.SeverityCritical)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
