package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewPostgresStore(db, WithClock(func() time.Time { return fixedNow }))
	return db, mock, store
}

func TestCreateUser_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@example.com", "Ann", "elderly", "hash", nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	u, err := store.CreateUser(context.Background(), model.User{
		Email: "a@example.com", Name: "Ann", Role: "elderly", HashedPassword: "hash",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Conflict(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := store.CreateUser(context.Background(), model.User{Email: "a@example.com"})

	assert.True(t, errors.Is(err, ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	cols := []string{"id", "email", "name", "role", "hashed_password", "dob", "emergency_contacts", "consent_status"}
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "a@example.com", "Ann", "elderly", "hash", nil, `["b@example.com"]`, nil))
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Nil(t, u.DOB)
	require.NotNil(t, u.EmergencyContacts)
	assert.Equal(t, `["b@example.com"]`, *u.EmergencyContacts)
	assert.Nil(t, u.ConsentStatus)

	_, err = store.GetUser(context.Background(), 2)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	cols := []string{"id", "email", "name", "role", "hashed_password", "dob", "emergency_contacts", "consent_status"}
	dob := time.Date(1940, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "a@example.com", "Ann", "admin", "hash", dob, nil, "granted"))

	u, err := store.GetUserByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	require.NotNil(t, u.DOB)
	assert.True(t, u.DOB.Equal(dob))
	assert.Equal(t, "granted", *u.ConsentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserIDsByRole(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM users WHERE role = \$1`).
		WithArgs("elderly").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(4))

	ids, err := store.UserIDsByRole(context.Background(), "elderly")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDevice(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	owner := int64(1)
	mock.ExpectQuery(`INSERT INTO devices`).
		WithArgs("dev-1", "motion", owner, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(`INSERT INTO devices`).
		WillReturnError(&pq.Error{Code: "23505"})

	d, err := store.CreateDevice(context.Background(), model.Device{DeviceUID: "dev-1", Type: "motion", OwnerUserID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(10), d.ID)

	_, err = store.CreateDevice(context.Background(), model.Device{DeviceUID: "dev-1", Type: "motion"})
	assert.True(t, errors.Is(err, ErrConflict))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeviceByUID(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	cols := []string{"id", "device_uid", "type", "owner_user_id", "fw_version", "last_seen", "battery"}
	mock.ExpectQuery(`FROM devices WHERE device_uid = \$1`).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, "dev-1", "motion", 1, "1.2.0", fixedNow, 0.8))
	mock.ExpectQuery(`FROM devices WHERE device_uid = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	d, err := store.GetDeviceByUID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), d.ID)
	assert.Equal(t, int64(1), *d.OwnerUserID)
	assert.Equal(t, "1.2.0", *d.FWVersion)
	assert.Equal(t, 0.8, *d.Battery)

	_, err = store.GetDeviceByUID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReading(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sensor_readings`).
		WithArgs(int64(10), fixedNow, "heart_rate", 72.0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))
	mock.ExpectExec(`UPDATE devices SET last_seen = \$1 WHERE id = \$2`).
		WithArgs(fixedNow, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r, err := store.InsertReading(context.Background(), model.SensorReading{DeviceID: 10, SensorType: "heart_rate", Value: 72})
	require.NoError(t, err)
	assert.Equal(t, int64(99), r.ID)
	assert.Equal(t, fixedNow, r.TS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReading_RollbackOnFailure(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sensor_readings`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.InsertReading(context.Background(), model.SensorReading{DeviceID: 10, SensorType: "motion", Value: 1})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentReadings(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sensor_readings r JOIN devices d`).
		WithArgs(int64(1), 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_id", "ts", "sensor_type", "value", "payload"}).
			AddRow(2, 10, fixedNow, "motion", 1.0, nil).
			AddRow(1, 10, fixedNow.Add(-time.Minute), "motion", 0.0, `{"raw":true}`))

	rs, err := store.RecentReadings(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Nil(t, rs[0].Payload)
	assert.Equal(t, `{"raw":true}`, *rs[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEvent(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO events`).
		WithArgs(int64(1), fixedNow, "fall", "critical", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(int64(5), nil, "new", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	e, a, err := store.CreateEvent(context.Background(), model.Event{UserID: 1, Type: "fall", Severity: "critical"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.ID)
	assert.Equal(t, int64(8), a.ID)
	assert.Equal(t, int64(5), a.EventID)
	assert.Equal(t, model.AlertStatusNew, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsForUser(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM alerts a JOIN events e`).
		WithArgs(int64(1), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "recipients", "status", "created_at", "acknowledged_by"}).
			AddRow(8, 5, nil, "ack", fixedNow, "caregiver1"))

	as, err := store.AlertsForUser(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Len(t, as, 1)
	assert.Equal(t, "caregiver1", *as[0].AcknowledgedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAckAlert(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE alerts SET status = \$1, acknowledged_by = \$2 WHERE id = \$3`).
		WithArgs("ack", "nurse", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE alerts SET status`).
		WithArgs("ack", "nurse", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.AckAlert(context.Background(), 8, "nurse"))
	err := store.AckAlert(context.Background(), 404, "nurse")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAlertSent(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE alerts SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs("sent", int64(8), "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.MarkAlertSent(context.Background(), 8))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRiskScore(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO risk_scores`).
		WithArgs(int64(1), fixedNow, -0.2, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	rs, err := store.InsertRiskScore(context.Background(), model.RiskScore{UserID: 1, Score: -0.2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	for range schema {
		mock.ExpectExec(`CREATE (TABLE|INDEX) IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("permission denied"))

	err := store.Migrate(context.Background())
	assert.ErrorContains(t, err, "migrate step 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
