package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository holds the read side of bookings. Writes go through Tx.
type BookingRepository interface {
	GetForUser(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.BookingDetails, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingDetailsColumns = `b.id, b.reference, b.user_id, b.flight_id, b.passenger_name, b.passenger_email, b.passenger_phone,
	b.seat_label, b.status, b.created_at, b.updated_at,
	f.id, f.flight_number, f.airline, f.origin, f.destination, f.departure_time, f.arrival_time,
	f.total_seats, f.available_seats, f.price_cents, f.status, f.created_at, f.updated_at`

func scanBookingDetails(row scanner) (*domain.BookingDetails, error) {
	var d domain.BookingDetails
	b, f := &d.Booking, &d.Flight
	if err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.FlightID, &b.PassengerName, &b.PassengerEmail, &b.PassengerPhone,
		&b.SeatLabel, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&f.ID, &f.FlightNumber, &f.Airline, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PGBookingRepository) GetForUser(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingDetailsColumns+`
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.id=$1 AND b.user_id=$2`, bookingID, userID)
	d, err := scanBookingDetails(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (r *PGBookingRepository) ListForUser(ctx context.Context, userID int64) ([]domain.BookingDetails, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingDetailsColumns+`
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.user_id=$1
		ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.BookingDetails, 0)
	for rows.Next() {
		d, err := scanBookingDetails(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *d)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
