package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/flight-seat-inventory/internal/model"
)

// MySQLCatalog reads the flights and bookings tables owned by the flight
// catalog and the booking workflow.  It never writes to them.
type MySQLCatalog struct {
	db *sql.DB
}

// NewMySQLCatalog returns a catalog bound to db.
func NewMySQLCatalog(db *sql.DB) *MySQLCatalog { return &MySQLCatalog{db: db} }

// Capacity implements Catalog.  Sold seats are the sum of confirmed
// bookings for the cabin.
func (c *MySQLCatalog) Capacity(ctx context.Context, key model.PoolKey) (model.Capacity, error) {
	const q = `SELECT CASE ? WHEN 'business' THEN f.business_seats ELSE f.economy_seats END,
	                  COALESCE((SELECT SUM(b.seats) FROM bookings b
	                             WHERE b.flight_id = f.id AND b.cabin_class = ? AND b.status = 'confirmed'), 0)
	             FROM flights f
	            WHERE f.id = ?`
	var capacity model.Capacity
	err := c.db.QueryRowContext(ctx, q, key.Cabin.String(), key.Cabin.String(), key.FlightID).Scan(&capacity.TotalSeats, &capacity.SoldSeats)
	if err != nil {
		return model.Capacity{}, classify("capacity "+key.String(), err)
	}
	return capacity, nil
}

// Flight implements Catalog.
func (c *MySQLCatalog) Flight(ctx context.Context, flightID string) (*model.Flight, error) {
	const q = `SELECT id, flight_number, origin, destination, departure_at, economy_seats, business_seats
	             FROM flights
	            WHERE id = ?`
	var f model.Flight
	err := c.db.QueryRowContext(ctx, q, flightID).Scan(
		&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureAt, &f.EconomySeats, &f.BusinessSeats,
	)
	if err != nil {
		return nil, classify("flight "+flightID, err)
	}
	return &f, nil
}
