// Package detection simulates the fall-detection worker: on every tick it rolls
// against a configured probability and, on a hit, raises a critical fall event
// for a random known subject.
package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Default loop settings.
const (
	defaultInterval    = 5 * time.Second
	defaultProbability = 0.05
)

// ErrNoSubjects is returned when the subject source is empty.
var ErrNoSubjects = errors.New("no subjects to pick from")

// Publisher hands events to the notifier.
type Publisher interface {
	Publish(ctx context.Context, ev model.DetectionEvent) (string, error)
}

// EventStore persists events together with a new alert.
type EventStore interface {
	CreateEvent(ctx context.Context, e model.Event, recipients *string) (model.Event, model.Alert, error)
}

// Detector runs the simulated detection loop.
type Detector struct {
	subjects    SubjectSource
	publisher   Publisher
	store       EventStore
	interval    time.Duration
	probability float64
	rng         *rand.Rand
	now         func() time.Time
	newID       func() string
	logger      logger.Logger
}

// New creates a detector. Without a publisher events are only logged.
func New(subjects SubjectSource, opts ...Option) *Detector {
	d := &Detector{
		subjects:    subjects,
		interval:    defaultInterval,
		probability: defaultProbability,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run ticks until ctx is canceled. Errors are logged and the loop continues.
func (d *Detector) Run(ctx context.Context) error {
	d.logger.Info(ctx, "starting detection loop",
		logger.String("interval", d.interval.String()),
		logger.Float64("probability", d.probability))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, _, err := d.Tick(ctx); err != nil {
				d.logger.Error(ctx, "detection tick failed", logger.Error(err))
				metrics.RecordErrorByComponent("detection", "tick_error")
			}
		}
	}
}

// Tick rolls once and emits an event on a hit. The bool reports whether an event was raised.
func (d *Detector) Tick(ctx context.Context) (model.DetectionEvent, bool, error) {
	if d.rng.Float64() >= d.probability {
		return model.DetectionEvent{}, false, nil
	}
	ev, err := d.Emit(ctx)
	if err != nil {
		return ev, false, err
	}
	return ev, true, nil
}

// Emit raises a fall event for a random subject, stores it when a store is
// configured and the subject is a platform user, and publishes it.
func (d *Detector) Emit(ctx context.Context) (model.DetectionEvent, error) {
	ids, err := d.subjects.Subjects(ctx)
	if err != nil {
		return model.DetectionEvent{}, fmt.Errorf("list subjects: %w", err)
	}
	if len(ids) == 0 {
		return model.DetectionEvent{}, ErrNoSubjects
	}

	ev := model.DetectionEvent{
		ID:        d.newID(),
		SubjectID: ids[d.rng.IntN(len(ids))],
		Type:      model.EventTypeFall,
		Severity:  model.SeverityCritical,
		Timestamp: d.now().UTC(),
	}

	if err := d.persist(ctx, &ev); err != nil {
		return ev, err
	}

	metrics.RecordDetectionEvent(ev.Type, ev.Severity)
	if d.publisher == nil {
		d.logger.Info(ctx, "simulated fall event",
			logger.String("event_id", ev.ID), logger.String("subject_id", ev.SubjectID))
		return ev, nil
	}
	id, err := d.publisher.Publish(ctx, ev)
	if err != nil {
		return ev, fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	d.logger.Info(ctx, "published fall event",
		logger.String("event_id", ev.ID),
		logger.String("subject_id", ev.SubjectID),
		logger.String("stream_id", id))
	return ev, nil
}

func (d *Detector) persist(ctx context.Context, ev *model.DetectionEvent) error {
	if d.store == nil {
		return nil
	}
	userID, err := strconv.ParseInt(ev.SubjectID, 10, 64)
	if err != nil {
		d.logger.Debug(ctx, "subject is not a platform user, event not stored",
			logger.String("subject_id", ev.SubjectID))
		return nil
	}
	payload, err := json.Marshal(map[string]string{"event_id": ev.ID, "source": "detection"})
	if err != nil {
		return err
	}
	body := string(payload)
	_, alert, err := d.store.CreateEvent(ctx, model.Event{
		UserID:    userID,
		Timestamp: ev.Timestamp,
		Type:      ev.Type,
		Severity:  ev.Severity,
		Payload:   &body,
	}, nil)
	if err != nil {
		return fmt.Errorf("store event for user %d: %w", userID, err)
	}
	ev.AlertID = alert.ID
	return nil
}
