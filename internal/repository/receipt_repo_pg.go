package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReceiptRepository interface {
	// GetForUser returns the receipt of a booking owned by userID.
	GetForUser(ctx context.Context, bookingID, userID int64) (*domain.ReceiptRecord, error)
	// GetByID is used by the issuer, which runs without a user.
	GetByID(ctx context.Context, receiptID int64) (*domain.ReceiptRecord, error)
	AttachArtifact(ctx context.Context, receiptID int64, path string) error
	ListMissingArtifacts(ctx context.Context, generatedBefore time.Time, limit int) ([]int64, error)
}

type PGReceiptRepository struct {
	db *pgxpool.Pool
}

func NewReceiptRepository(db *pgxpool.Pool) ReceiptRepository {
	return &PGReceiptRepository{db: db}
}

const receiptRecordQuery = `SELECT
		r.id, r.number, r.generated_at, COALESCE(r.artifact_path, ''),
		b.id, b.reference, b.status, b.passenger_name, b.passenger_email, b.passenger_phone, b.seat_label,
		f.flight_number, f.airline, f.origin, f.destination, f.departure_time, f.arrival_time,
		p.amount_cents, p.method, p.transaction_id, p.created_at
	FROM receipts r
	JOIN bookings b ON b.id = r.booking_id
	JOIN flights f ON f.id = b.flight_id
	JOIN payments p ON p.booking_id = b.id`

func scanReceiptRecord(row scanner) (*domain.ReceiptRecord, error) {
	var rec domain.ReceiptRecord
	if err := row.Scan(&rec.ReceiptID, &rec.ReceiptNumber, &rec.GeneratedAt, &rec.ArtifactPath,
		&rec.BookingID, &rec.Reference, &rec.BookingStatus, &rec.PassengerName, &rec.PassengerEmail, &rec.PassengerPhone, &rec.SeatLabel,
		&rec.FlightNumber, &rec.Airline, &rec.Origin, &rec.Destination, &rec.DepartureTime, &rec.ArrivalTime,
		&rec.AmountCents, &rec.PaymentMethod, &rec.TransactionID, &rec.PaidAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PGReceiptRepository) GetForUser(ctx context.Context, bookingID, userID int64) (*domain.ReceiptRecord, error) {
	rec, err := scanReceiptRecord(r.db.QueryRow(ctx, receiptRecordQuery+` WHERE r.booking_id=$1 AND b.user_id=$2`, bookingID, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("receipt for booking %d: %w", bookingID, domain.ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}

func (r *PGReceiptRepository) GetByID(ctx context.Context, receiptID int64) (*domain.ReceiptRecord, error) {
	rec, err := scanReceiptRecord(r.db.QueryRow(ctx, receiptRecordQuery+` WHERE r.id=$1`, receiptID))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("receipt %d: %w", receiptID, domain.ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}

func (r *PGReceiptRepository) AttachArtifact(ctx context.Context, receiptID int64, path string) error {
	res, err := r.db.Exec(ctx, `UPDATE receipts SET artifact_path=$1 WHERE id=$2`, path, receiptID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("receipt %d: %w", receiptID, domain.ErrNotFound)
	}
	return nil
}

func (r *PGReceiptRepository) ListMissingArtifacts(ctx context.Context, generatedBefore time.Time, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM receipts WHERE artifact_path IS NULL AND generated_at < $1 ORDER BY generated_at LIMIT $2`,
		generatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ ReceiptRepository = (*PGReceiptRepository)(nil)
