package db

import (
	"context"
	"database/sql"
	"fmt"

	"movemate/internal/ledger"
	"movemate/internal/transit"
)

// Mirror copies seat counters and committed bookings into Postgres. It is a
// secondary sink; the flat files stay authoritative.
type Mirror struct {
	db *sql.DB
}

func NewMirror(db *sql.DB) *Mirror { return &Mirror{db: db} }

// Save upserts the occupancy of every route in one transaction.
func (m *Mirror) Save(ctx context.Context, entries []transit.Entry) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin occupancy tx: %w", err)
	}
	defer tx.Rollback()

	q := `
INSERT INTO route_occupancy (route_id, occupancy, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (route_id) DO UPDATE SET occupancy = EXCLUDED.occupancy, updated_at = now()`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, q, e.RouteID, e.Occupancy); err != nil {
			return fmt.Errorf("upsert occupancy route %d: %w", e.RouteID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit occupancy tx: %w", err)
	}
	return nil
}

// Append stores a booking and its passengers atomically.
func (m *Mirror) Append(ctx context.Context, rec ledger.Record) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback()

	q := `
INSERT INTO bookings (route_id, route_summary, passenger_count, total_fare, payment_method, payment_reference, booked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q,
		rec.RouteID, rec.RouteSummary, len(rec.Passengers), rec.TotalFare,
		rec.Method.String(), rec.Reference, rec.BookedAt,
	).Scan(&id); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	pq := `INSERT INTO booking_passengers (booking_id, position, name, age, gender) VALUES ($1, $2, $3, $4, $5)`
	for i, p := range rec.Passengers {
		if _, err := tx.ExecContext(ctx, pq, id, i+1, p.Name, p.Age, p.Gender); err != nil {
			return fmt.Errorf("insert passenger %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// LoadOccupancy reads the mirrored counters, for operators comparing the
// mirror with the state file.
func (m *Mirror) LoadOccupancy(ctx context.Context) ([]transit.Entry, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT route_id, occupancy FROM route_occupancy ORDER BY route_id`)
	if err != nil {
		return nil, fmt.Errorf("query occupancy: %w", err)
	}
	defer rows.Close()
	var out []transit.Entry
	for rows.Next() {
		var e transit.Entry
		if err := rows.Scan(&e.RouteID, &e.Occupancy); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
