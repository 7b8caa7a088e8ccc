package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		full_name     VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		phone         VARCHAR(32),
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,

	`CREATE TABLE IF NOT EXISTS flights (
		id              BIGSERIAL PRIMARY KEY,
		flight_number   VARCHAR(16) NOT NULL,
		airline         VARCHAR(128) NOT NULL,
		origin          VARCHAR(128) NOT NULL,
		destination     VARCHAR(128) NOT NULL,
		departure_time  TIMESTAMPTZ NOT NULL,
		arrival_time    TIMESTAMPTZ NOT NULL,
		total_seats     INTEGER NOT NULL CHECK (total_seats > 0),
		available_seats INTEGER NOT NULL,
		price_cents     BIGINT NOT NULL CHECK (price_cents >= 0),
		status          VARCHAR(16) NOT NULL DEFAULT 'scheduled',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT flights_seats_range CHECK (available_seats >= 0 AND available_seats <= total_seats)
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGSERIAL PRIMARY KEY,
		reference       VARCHAR(16) NOT NULL,
		user_id         BIGINT NOT NULL REFERENCES users(id),
		flight_id       BIGINT NOT NULL REFERENCES flights(id),
		passenger_name  VARCHAR(255) NOT NULL,
		passenger_email VARCHAR(255) NOT NULL,
		passenger_phone VARCHAR(32) NOT NULL,
		seat_label      VARCHAR(8) NOT NULL,
		status          VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed')),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT bookings_reference_key UNIQUE (reference),
		CONSTRAINT bookings_flight_seat_key UNIQUE (flight_id, seat_label)
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id             BIGSERIAL PRIMARY KEY,
		booking_id     BIGINT NOT NULL REFERENCES bookings(id),
		amount_cents   BIGINT NOT NULL,
		method         VARCHAR(32) NOT NULL,
		card_last_four CHAR(4) NOT NULL,
		transaction_id VARCHAR(64) NOT NULL,
		status         VARCHAR(16) NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT payments_booking_key UNIQUE (booking_id)
	)`,

	`CREATE TABLE IF NOT EXISTS receipts (
		id            BIGSERIAL PRIMARY KEY,
		booking_id    BIGINT NOT NULL REFERENCES bookings(id),
		number        VARCHAR(16) NOT NULL,
		generated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		artifact_path TEXT,
		CONSTRAINT receipts_booking_key UNIQUE (booking_id),
		CONSTRAINT receipts_number_key UNIQUE (number)
	)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id         BIGSERIAL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		email      VARCHAR(255) NOT NULL,
		subject    VARCHAR(255),
		message    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_flights_departure ON flights(departure_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_missing_artifact ON receipts(generated_at) WHERE artifact_path IS NULL`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}
