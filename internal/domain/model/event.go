// Package model contains domain models passed between layers.
package model

import "time"

// Reading is a single sensor sample submitted by a device.
// It is the payload flowing through the ingestion queue.
type Reading struct {
	DeviceUID  string    // device identifier as printed on the hardware
	SensorType string    // e.g. "heart_rate", "motion", "door"
	Value      float64   // raw sensor value
	ReceivedAt time.Time // time the ingestion service accepted the sample
}

// Event is something noteworthy that happened to a user, e.g. a detected fall.
type Event struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Payload   *string   `json:"payload,omitempty"`
}

// DetectionEvent is the message the detection worker publishes for the notifier.
type DetectionEvent struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	// AlertID is set when the event was persisted with an alert.
	AlertID int64 `json:"alert_id,omitempty"`
}

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event types.
const (
	EventTypeFall = "fall"
)
