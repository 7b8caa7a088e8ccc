package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the set of writes that only run inside a unit of work. Locks taken
// by LockFlight and LockBooking are held until the unit commits or rolls back.
type Tx interface {
	LockFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	DecrementSeats(ctx context.Context, flightID int64) error
	InsertBooking(ctx context.Context, booking *domain.Booking) error

	LockBooking(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error)
	PaymentExists(ctx context.Context, bookingID int64) (bool, error)
	InsertPayment(ctx context.Context, payment *domain.Payment) error
	ConfirmBooking(ctx context.Context, bookingID int64) error
	InsertReceipt(ctx context.Context, receipt *domain.Receipt) error
}

// TxManager runs fn in a single database transaction. Any error returned by
// fn rolls back every write made through tx.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type PGTxManager struct {
	db *pgxpool.Pool
}

func NewTxManager(db *pgxpool.Pool) TxManager {
	return &PGTxManager{db: db}
}

func (m *PGTxManager) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, flightID)
	f, err := scanFlight(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (t *pgTx) DecrementSeats(ctx context.Context, flightID int64) error {
	res, err := t.tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1 AND available_seats > 0`, flightID)
	if err != nil {
		if isConstraint(err, checkViolation, "flights_seats_range") {
			return domain.ErrFlightNotAvailable
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotAvailable
	}
	return nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings
		(reference, user_id, flight_id, passenger_name, passenger_email, passenger_phone, seat_label, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		b.Reference, b.UserID, b.FlightID, b.PassengerName, b.PassengerEmail, b.PassengerPhone, b.SeatLabel, b.Status).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isConstraint(err, uniqueViolation, "bookings_reference_key") {
			return domain.ErrDuplicateCode
		}
		if isConstraint(err, uniqueViolation, "bookings_flight_seat_key") {
			return fmt.Errorf("seat %s already assigned on flight %d: %w", b.SeatLabel, b.FlightID, domain.ErrFlightNotAvailable)
		}
		return err
	}
	return nil
}

func (t *pgTx) LockBooking(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+bookingDetailsColumns+`
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.id=$1 AND b.user_id=$2
		FOR UPDATE OF b`, bookingID, userID)
	d, err := scanBookingDetails(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (t *pgTx) PaymentExists(ctx context.Context, bookingID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE booking_id=$1)`, bookingID).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO payments
		(booking_id, amount_cents, method, card_last_four, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.BookingID, p.AmountCents, p.Method, p.CardLastFour, p.TransactionID, p.Status).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isConstraint(err, uniqueViolation, "payments_booking_key") {
			return domain.ErrAlreadyPaid
		}
		return err
	}
	return nil
}

func (t *pgTx) ConfirmBooking(ctx context.Context, bookingID int64) error {
	res, err := t.tx.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`,
		domain.BookingStatusConfirmed, bookingID, domain.BookingStatusPending)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("booking %d: %w", bookingID, domain.ErrInvalidState)
	}
	return nil
}

func (t *pgTx) InsertReceipt(ctx context.Context, r *domain.Receipt) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO receipts (booking_id, number) VALUES ($1, $2) RETURNING id, generated_at`,
		r.BookingID, r.Number).Scan(&r.ID, &r.GeneratedAt)
	if err != nil {
		switch {
		case isConstraint(err, uniqueViolation, "receipts_number_key"):
			return domain.ErrDuplicateCode
		case isConstraint(err, uniqueViolation, "receipts_booking_key"):
			return domain.ErrAlreadyPaid
		}
		return err
	}
	return nil
}

var (
	_ TxManager = (*PGTxManager)(nil)
	_ Tx        = (*pgTx)(nil)
)

