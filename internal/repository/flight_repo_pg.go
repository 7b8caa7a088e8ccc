package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listFlightsLimit = 50

type FlightRepository interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Origins(ctx context.Context) ([]string, error)
	Destinations(ctx context.Context) ([]string, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, origin, destination, departure_time, arrival_time, total_seats, available_seats, price_cents, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	query, args := buildListQuery(filter, time.Now())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func buildListQuery(filter domain.FlightFilter, now time.Time) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + flightColumns + ` FROM flights WHERE status = ` + arg(domain.FlightStatusScheduled) + ` AND available_seats > 0`)
	if filter.Origin != "" {
		sb.WriteString(` AND origin ILIKE ` + arg("%"+filter.Origin+"%"))
	}
	if filter.Destination != "" {
		sb.WriteString(` AND destination ILIKE ` + arg("%"+filter.Destination+"%"))
	}
	if filter.DepartsFrom.IsZero() {
		sb.WriteString(` AND departure_time >= ` + arg(now))
	} else {
		sb.WriteString(` AND departure_time >= ` + arg(filter.DepartsFrom))
	}
	if filter.Passengers > 0 {
		sb.WriteString(` AND available_seats >= ` + arg(filter.Passengers))
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY departure_time ASC LIMIT %d`, listFlightsLimit))
	return sb.String(), args
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("flight %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (r *PGFlightRepository) Origins(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "origin")
}

func (r *PGFlightRepository) Destinations(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "destination")
}

// column is always one of the two literals above.
func (r *PGFlightRepository) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT DISTINCT %[1]s FROM flights WHERE status=$1 ORDER BY %[1]s`, column), domain.FlightStatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
