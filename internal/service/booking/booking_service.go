package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/codes"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

// seatsPerRow is the fixed cabin layout: letters A through F.
const seatsPerRow = 6

// maxCodeAttempts bounds retries after a generated reference collided.
const maxCodeAttempts = 3

type BookingUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Reservation, error)
	GetBooking(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error)
	ListBookings(ctx context.Context, userID int64) ([]domain.BookingDetails, error)
}

type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error
}

type BookingService struct {
	tx           repository.TxManager
	bookings     repository.BookingRepository
	cache        Cache
	events       EventPublisher
	logger       *zap.Logger
	newReference func() string
}

type ReserveInput struct {
	FlightID       int64  `json:"flight_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	PassengerPhone string `json:"passenger_phone"`
	UserID         int64  `json:"-"`
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithEvents(events EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.events = events
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func WithReferenceGenerator(fn func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newReference = fn
	}
}

func NewBookingService(
	tx repository.TxManager,
	bookings repository.BookingRepository,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		tx:           tx,
		bookings:     bookings,
		logger:       zap.NewNop(),
		newReference: codes.BookingReference,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SeatLabel returns the label of the next seat to hand out when available
// of total seats are still free: seats fill row by row, A to F.
func SeatLabel(total, available int) string {
	n := total - available + 1
	row := (n + seatsPerRow - 1) / seatsPerRow
	letter := 'A' + rune((n-1)%seatsPerRow)
	return fmt.Sprintf("%d%c", row, letter)
}

func (in ReserveInput) validate() error {
	var missing []string
	if in.FlightID <= 0 {
		missing = append(missing, "flight_id")
	}
	if strings.TrimSpace(in.PassengerName) == "" {
		missing = append(missing, "passenger_name")
	}
	if strings.TrimSpace(in.PassengerEmail) == "" {
		missing = append(missing, "passenger_email")
	}
	if strings.TrimSpace(in.PassengerPhone) == "" {
		missing = append(missing, "passenger_phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields %s: %w", strings.Join(missing, ", "), domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.PassengerEmail); err != nil {
		return fmt.Errorf("invalid passenger_email: %w", domain.ErrInvalidInput)
	}
	if in.UserID <= 0 {
		return fmt.Errorf("reserve without user: %w", domain.ErrUnauthorized)
	}
	return nil
}

// Reserve assigns the next seat of a flight to a new pending booking. The
// flight row stays locked from the availability check until the booking is
// written and the seat count decremented, so concurrent reservations on the
// same flight are serialized and never share a seat label.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*domain.Reservation, error) {
	if err := input.validate(); err != nil {
		metrics.Reservations.WithLabelValues(domain.Kind(err)).Inc()
		return nil, err
	}

	var (
		booking *domain.Booking
		price   int64
		err     error
	)
	for attempt := 1; ; attempt++ {
		booking, price, err = s.reserveOnce(ctx, input)
		if !errors.Is(err, domain.ErrDuplicateCode) || attempt == maxCodeAttempts {
			break
		}
		metrics.CodeRetries.WithLabelValues("reserve").Inc()
		s.logger.Warn("booking reference collided, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		err = domain.Classify(err)
		metrics.Reservations.WithLabelValues(domain.Kind(err)).Inc()
		if errors.Is(err, domain.ErrInternal) {
			s.logger.Error("reserve failed", zap.Int64("flight_id", input.FlightID), zap.Error(err))
		}
		return nil, err
	}
	metrics.Reservations.WithLabelValues("ok").Inc()

	s.afterReserve(ctx, booking, price)

	return &domain.Reservation{
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		SeatLabel:   booking.SeatLabel,
		AmountCents: price,
	}, nil
}

func (s *BookingService) reserveOnce(ctx context.Context, input ReserveInput) (*domain.Booking, int64, error) {
	var (
		booking *domain.Booking
		price   int64
	)
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		flight, err := tx.LockFlight(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if !flight.Bookable() {
			return fmt.Errorf("flight %d has no bookable seats: %w", flight.ID, domain.ErrFlightNotAvailable)
		}

		b := &domain.Booking{
			Reference:      s.newReference(),
			UserID:         input.UserID,
			FlightID:       flight.ID,
			PassengerName:  strings.TrimSpace(input.PassengerName),
			PassengerEmail: strings.TrimSpace(input.PassengerEmail),
			PassengerPhone: strings.TrimSpace(input.PassengerPhone),
			SeatLabel:      SeatLabel(flight.TotalSeats, flight.AvailableSeats),
			Status:         domain.BookingStatusPending,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.DecrementSeats(ctx, flight.ID); err != nil {
			return err
		}

		booking = b
		price = flight.PriceCents
		return nil
	})
	return booking, price, err
}

// afterReserve runs the side effects of a committed reservation. Failures
// are logged and never reported to the caller.
func (s *BookingService) afterReserve(ctx context.Context, booking *domain.Booking, price int64) {
	if s.cache != nil {
		if err := s.cache.InvalidateFlights(ctx); err != nil {
			s.logger.Warn("failed to invalidate flights cache", zap.Error(err))
		}
	}
	if s.events != nil {
		event := kafka.BookingEvent{
			Type:           kafka.EventBookingCreated,
			BookingID:      booking.ID,
			Reference:      booking.Reference,
			FlightID:       booking.FlightID,
			UserID:         booking.UserID,
			PassengerName:  booking.PassengerName,
			PassengerEmail: booking.PassengerEmail,
			SeatLabel:      booking.SeatLabel,
			Status:         string(booking.Status),
			AmountCents:    price,
		}
		if err := s.events.PublishBookingEvent(ctx, event); err != nil {
			s.logger.Warn("failed to publish booking_created",
				zap.String("reference", booking.Reference), zap.Error(err))
		}
	}
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID int64) (*domain.BookingDetails, error) {
	details, err := s.bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, domain.Classify(err)
	}
	return details, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID int64) ([]domain.BookingDetails, error) {
	list, err := s.bookings.ListForUser(ctx, userID)
	if err != nil {
		return nil, domain.Classify(err)
	}
	if list == nil {
		list = []domain.BookingDetails{}
	}
	return list, nil
}

var _ BookingUseCase = (*BookingService)(nil)
