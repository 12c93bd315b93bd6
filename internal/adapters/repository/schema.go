package repository

import (
	"context"
	"fmt"
)

// schema creates every table idempotently, in dependency order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		hashed_password TEXT NOT NULL,
		dob TIMESTAMPTZ NULL,
		emergency_contacts TEXT NULL,
		consent_status TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id BIGSERIAL PRIMARY KEY,
		device_uid TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		owner_user_id BIGINT NULL REFERENCES users(id),
		fw_version TEXT NULL,
		last_seen TIMESTAMPTZ NULL,
		battery DOUBLE PRECISION NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id BIGSERIAL PRIMARY KEY,
		device_id BIGINT NOT NULL REFERENCES devices(id),
		ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		sensor_type TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		payload TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sensor_readings_ts_idx ON sensor_readings (ts)`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		payload TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS risk_scores (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		score DOUBLE PRECISION NOT NULL,
		factors TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id),
		recipients TEXT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		acknowledged_by TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS medication_schedules (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		drug TEXT NOT NULL,
		dose TEXT NOT NULL,
		times TEXT NULL,
		confirmed TEXT NULL
	)`,
}

// Migrate creates the schema. Safe to run repeatedly.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	s.logger.Info(ctx, "schema migrated")
	return nil
}
