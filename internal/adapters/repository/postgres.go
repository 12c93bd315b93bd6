package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/logger"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// PostgresStore implements Store on database/sql with the lib/pq driver.
type PostgresStore struct {
	db      *sql.DB
	maxOpen int
	maxIdle int
	now     Clock
	logger  logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// Open connects to dsn, applies pool limits and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := NewPostgresStore(db, opts...)
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)

	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

// NewPostgresStore wraps an existing handle.
func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		db:      db,
		maxOpen: defaultMaxOpenConns,
		maxIdle: defaultMaxIdleConns,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func observe(op string, start time.Time) {
	metrics.RecordDBQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

const userColumns = `id, email, name, role, hashed_password, dob, emergency_contacts, consent_status`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u        model.User
		dob      sql.NullTime
		contacts sql.NullString
		consent  sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.HashedPassword, &dob, &contacts, &consent); err != nil {
		return model.User{}, err
	}
	if dob.Valid {
		u.DOB = &dob.Time
	}
	u.EmergencyContacts = nullString(contacts)
	u.ConsentStatus = nullString(consent)
	return u, nil
}

// CreateUser inserts a user.
func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	defer observe("create_user", time.Now())
	const q = `INSERT INTO users (email, name, role, hashed_password, dob, emergency_contacts, consent_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := s.db.QueryRowContext(ctx, q, u.Email, u.Name, u.Role, u.HashedPassword, u.DOB, u.EmergencyContacts, u.ConsentStatus).
		Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("%w: email %s", ErrConflict, u.Email)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser loads a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (model.User, error) {
	defer observe("get_user", time.Now())
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return model.User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

// GetUserByEmail loads a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	defer observe("get_user_by_email", time.Now())
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return model.User{}, notFound(err, "user "+email)
	}
	return u, nil
}

// UserIDsByRole lists user ids for a role, ascending.
func (s *PostgresStore) UserIDsByRole(ctx context.Context, role string) ([]int64, error) {
	defer observe("user_ids_by_role", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateDevice registers a device.
func (s *PostgresStore) CreateDevice(ctx context.Context, d model.Device) (model.Device, error) {
	defer observe("create_device", time.Now())
	const q = `INSERT INTO devices (device_uid, type, owner_user_id, fw_version, battery)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := s.db.QueryRowContext(ctx, q, d.DeviceUID, d.Type, d.OwnerUserID, d.FWVersion, d.Battery).Scan(&d.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Device{}, fmt.Errorf("%w: device %s", ErrConflict, d.DeviceUID)
		}
		return model.Device{}, fmt.Errorf("create device: %w", err)
	}
	return d, nil
}

// GetDeviceByUID loads a device by its hardware uid.
func (s *PostgresStore) GetDeviceByUID(ctx context.Context, uid string) (model.Device, error) {
	defer observe("get_device", time.Now())
	const q = `SELECT id, device_uid, type, owner_user_id, fw_version, last_seen, battery
		FROM devices WHERE device_uid = $1`
	var (
		d        model.Device
		owner    sql.NullInt64
		fw       sql.NullString
		lastSeen sql.NullTime
		battery  sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, q, uid).Scan(&d.ID, &d.DeviceUID, &d.Type, &owner, &fw, &lastSeen, &battery)
	if err != nil {
		return model.Device{}, notFound(err, "device "+uid)
	}
	if owner.Valid {
		d.OwnerUserID = &owner.Int64
	}
	d.FWVersion = nullString(fw)
	if lastSeen.Valid {
		d.LastSeen = &lastSeen.Time
	}
	if battery.Valid {
		d.Battery = &battery.Float64
	}
	return d, nil
}

// InsertReading stores the reading and updates last_seen in one transaction.
func (s *PostgresStore) InsertReading(ctx context.Context, r model.SensorReading) (model.SensorReading, error) {
	defer observe("insert_reading", time.Now())
	if r.TS.IsZero() {
		r.TS = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SensorReading{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const ins = `INSERT INTO sensor_readings (device_id, ts, sensor_type, value, payload)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.QueryRowContext(ctx, ins, r.DeviceID, r.TS, r.SensorType, r.Value, r.Payload).Scan(&r.ID); err != nil {
		return model.SensorReading{}, fmt.Errorf("insert reading: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE devices SET last_seen = $1 WHERE id = $2`, r.TS, r.DeviceID); err != nil {
		return model.SensorReading{}, fmt.Errorf("touch device: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.SensorReading{}, fmt.Errorf("commit: %w", err)
	}
	return r, nil
}

// RecentReadings returns up to limit readings of the user's devices, newest first.
func (s *PostgresStore) RecentReadings(ctx context.Context, userID int64, limit int) ([]model.SensorReading, error) {
	defer observe("recent_readings", time.Now())
	const q = `SELECT r.id, r.device_id, r.ts, r.sensor_type, r.value, r.payload
		FROM sensor_readings r JOIN devices d ON d.id = r.device_id
		WHERE d.owner_user_id = $1
		ORDER BY r.ts DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.SensorReading{}
	for rows.Next() {
		var (
			r       model.SensorReading
			payload sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.TS, &r.SensorType, &r.Value, &payload); err != nil {
			return nil, err
		}
		r.Payload = nullString(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateEvent inserts the event and its alert in one transaction.
func (s *PostgresStore) CreateEvent(ctx context.Context, e model.Event, recipients *string) (model.Event, model.Alert, error) {
	defer observe("create_event", time.Now())
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, model.Alert{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insEvent = `INSERT INTO events (user_id, timestamp, type, severity, payload)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.QueryRowContext(ctx, insEvent, e.UserID, e.Timestamp, e.Type, e.Severity, e.Payload).Scan(&e.ID); err != nil {
		return model.Event{}, model.Alert{}, fmt.Errorf("insert event: %w", err)
	}

	a := model.Alert{EventID: e.ID, Recipients: recipients, Status: model.AlertStatusNew, CreatedAt: e.Timestamp}
	const insAlert = `INSERT INTO alerts (event_id, recipients, status, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRowContext(ctx, insAlert, a.EventID, a.Recipients, a.Status, a.CreatedAt).Scan(&a.ID); err != nil {
		return model.Event{}, model.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Event{}, model.Alert{}, fmt.Errorf("commit: %w", err)
	}
	return e, a, nil
}

// AlertsForUser returns up to limit alerts of the user's events, newest first.
func (s *PostgresStore) AlertsForUser(ctx context.Context, userID int64, limit int) ([]model.Alert, error) {
	defer observe("alerts_for_user", time.Now())
	const q = `SELECT a.id, a.event_id, a.recipients, a.status, a.created_at, a.acknowledged_by
		FROM alerts a JOIN events e ON e.id = a.event_id
		WHERE e.user_id = $1
		ORDER BY a.created_at DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Alert{}
	for rows.Next() {
		var (
			a          model.Alert
			recipients sql.NullString
			ackBy      sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EventID, &recipients, &a.Status, &a.CreatedAt, &ackBy); err != nil {
			return nil, err
		}
		a.Recipients = nullString(recipients)
		a.AcknowledgedBy = nullString(ackBy)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AckAlert acknowledges an alert.
func (s *PostgresStore) AckAlert(ctx context.Context, alertID int64, by string) error {
	defer observe("ack_alert", time.Now())
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = $1, acknowledged_by = $2 WHERE id = $3`,
		model.AlertStatusAck, by, alertID)
	if err != nil {
		return fmt.Errorf("ack alert: %w", err)
	}
	return expectOne(res, fmt.Sprintf("alert %d", alertID))
}

// MarkAlertSent moves a new alert to sent. Alerts in any other state are left alone.
func (s *PostgresStore) MarkAlertSent(ctx context.Context, alertID int64) error {
	defer observe("mark_alert_sent", time.Now())
	_, err := s.db.ExecContext(ctx, `UPDATE alerts SET status = $1 WHERE id = $2 AND status = $3`,
		model.AlertStatusSent, alertID, model.AlertStatusNew)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	return nil
}

// InsertRiskScore stores a risk score.
func (s *PostgresStore) InsertRiskScore(ctx context.Context, rs model.RiskScore) (model.RiskScore, error) {
	defer observe("insert_risk_score", time.Now())
	if rs.Timestamp.IsZero() {
		rs.Timestamp = s.now()
	}
	const q = `INSERT INTO risk_scores (user_id, timestamp, score, factors) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := s.db.QueryRowContext(ctx, q, rs.UserID, rs.Timestamp, rs.Score, rs.Factors).Scan(&rs.ID); err != nil {
		return model.RiskScore{}, fmt.Errorf("insert risk score: %w", err)
	}
	return rs, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
