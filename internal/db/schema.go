package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS route_occupancy (
  route_id   INTEGER PRIMARY KEY,
  occupancy  INTEGER NOT NULL CHECK (occupancy >= 0),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS bookings (
  id                BIGSERIAL PRIMARY KEY,
  route_id          INTEGER NOT NULL,
  route_summary     TEXT NOT NULL,
  passenger_count   INTEGER NOT NULL,
  total_fare        NUMERIC(12,2) NOT NULL,
  payment_method    TEXT NOT NULL,
  payment_reference TEXT NOT NULL,
  booked_at         TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS booking_passengers (
  booking_id BIGINT NOT NULL REFERENCES bookings(id),
  position   INTEGER NOT NULL,
  name       TEXT NOT NULL,
  age        INTEGER NOT NULL,
  gender     TEXT NOT NULL,
  PRIMARY KEY (booking_id, position)
)`,
}

// EnsureSchema creates the mirror tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
