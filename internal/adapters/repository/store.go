// Package repository persists users, devices, readings, events and alerts.
package repository

import (
	"context"
	"time"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

// Store provides read/write access to the relational state.
type Store interface {
	// CreateUser inserts u. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	// GetUser returns ErrNotFound for unknown ids.
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// UserIDsByRole lists ids of users holding role.
	UserIDsByRole(ctx context.Context, role string) ([]int64, error)

	// CreateDevice inserts d. Returns ErrConflict if the uid is taken.
	CreateDevice(ctx context.Context, d model.Device) (model.Device, error)
	GetDeviceByUID(ctx context.Context, uid string) (model.Device, error)

	// InsertReading stores a reading and bumps the device's last_seen to its ts.
	InsertReading(ctx context.Context, r model.SensorReading) (model.SensorReading, error)
	// RecentReadings returns the newest readings of the user's devices.
	RecentReadings(ctx context.Context, userID int64, limit int) ([]model.SensorReading, error)

	// CreateEvent inserts an event and a new alert for it.
	CreateEvent(ctx context.Context, e model.Event, recipients *string) (model.Event, model.Alert, error)
	// AlertsForUser returns the newest alerts raised for the user.
	AlertsForUser(ctx context.Context, userID int64, limit int) ([]model.Alert, error)
	// AckAlert marks the alert acknowledged by by. Returns ErrNotFound for unknown ids.
	AckAlert(ctx context.Context, alertID int64, by string) error
	// MarkAlertSent moves a new alert to sent.
	MarkAlertSent(ctx context.Context, alertID int64) error

	// InsertRiskScore stores a score for a user.
	InsertRiskScore(ctx context.Context, s model.RiskScore) (model.RiskScore, error)

	Ping(ctx context.Context) error
	Close() error
}

// Clock returns the current time. Replaced in tests.
type Clock func() time.Time
