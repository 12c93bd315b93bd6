package model

import "time"

// Role names accepted by the platform.
const (
	RoleElderly    = "elderly"
	RoleCaregiver  = "caregiver"
	RoleClinician  = "clinician"
	RoleAdmin      = "admin"
	RoleIntegrator = "integrator"
)

// Roles lists every valid role.
var Roles = []string{RoleElderly, RoleCaregiver, RoleClinician, RoleAdmin, RoleIntegrator}

// ValidRole reports whether role is one of Roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Alert statuses.
const (
	AlertStatusNew    = "new"
	AlertStatusSent   = "sent"
	AlertStatusAck    = "ack"
	AlertStatusClosed = "closed"
)

// User is a person known to the platform: a monitored elder or a member of
// their care circle.
type User struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	Role              string     `json:"role"`
	HashedPassword    string     `json:"-"`
	DOB               *time.Time `json:"dob,omitempty"`
	EmergencyContacts *string    `json:"emergency_contacts,omitempty"`
	ConsentStatus     *string    `json:"consent_status,omitempty"`
}

// Device is a registered sensor unit.
type Device struct {
	ID          int64      `json:"id"`
	DeviceUID   string     `json:"device_uid"`
	Type        string     `json:"type"`
	OwnerUserID *int64     `json:"owner_user_id,omitempty"`
	FWVersion   *string    `json:"fw_version,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	Battery     *float64   `json:"battery,omitempty"`
}

// SensorReading is a persisted sample.
type SensorReading struct {
	ID         int64     `json:"id"`
	DeviceID   int64     `json:"device_id"`
	TS         time.Time `json:"ts"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	Payload    *string   `json:"payload,omitempty"`
}

// RiskScore is a persisted wellness score for a user.
type RiskScore struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Factors   *string   `json:"factors,omitempty"`
}

// Alert links an event to its recipients and tracks acknowledgment.
type Alert struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"event_id"`
	Recipients     *string   `json:"recipients,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	AcknowledgedBy *string   `json:"acknowledged_by,omitempty"`
}
