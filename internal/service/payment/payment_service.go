package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Domenick1991/flightbooking/internal/codes"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

const (
	minCardDigits   = 13
	maxCardDigits   = 19
	maxMethodLength = 32
	maxCodeAttempts = 3
)

type PaymentUseCase interface {
	Finalize(ctx context.Context, input FinalizeInput) (*domain.PaymentResult, error)
}

// ReceiptDispatcher schedules generation of a receipt artifact. It must not
// block on the generation itself.
type ReceiptDispatcher interface {
	Dispatch(ctx context.Context, receiptID int64) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error
}

type FinalizeInput struct {
	BookingID     int64  `json:"booking_id"`
	PaymentMethod string `json:"payment_method"`
	CardNumber    string `json:"card_number"`
	UserID        int64  `json:"-"`
}

type PaymentService struct {
	tx               repository.TxManager
	dispatcher       ReceiptDispatcher
	events           EventPublisher
	logger           *zap.Logger
	now              func() time.Time
	newReceiptNumber func() string
}

type PaymentServiceOption func(*PaymentService)

func WithEvents(events EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.events = events
	}
}

func WithLogger(logger *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		s.logger = logger
	}
}

func WithReceiptNumberGenerator(fn func() string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.newReceiptNumber = fn
	}
}

func NewPaymentService(tx repository.TxManager, dispatcher ReceiptDispatcher, opts ...PaymentServiceOption) *PaymentService {
	service := &PaymentService{
		tx:               tx,
		dispatcher:       dispatcher,
		logger:           zap.NewNop(),
		now:              time.Now,
		newReceiptNumber: codes.ReceiptNumber,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// NormalizeCardNumber strips whitespace and checks the result is 13 to 19
// digits. Only the normalized form is ever looked at afterwards.
func NormalizeCardNumber(raw string) (string, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if len(normalized) < minCardDigits || len(normalized) > maxCardDigits {
		return "", fmt.Errorf("card number must have %d to %d digits: %w", minCardDigits, maxCardDigits, domain.ErrInvalidInput)
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("card number must contain only digits: %w", domain.ErrInvalidInput)
		}
	}
	return normalized, nil
}

func (in FinalizeInput) validate() (string, error) {
	if in.BookingID <= 0 {
		return "", fmt.Errorf("booking_id is required: %w", domain.ErrInvalidInput)
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" || len(method) > maxMethodLength {
		return "", fmt.Errorf("payment_method is required: %w", domain.ErrInvalidInput)
	}
	card, err := NormalizeCardNumber(in.CardNumber)
	if err != nil {
		return "", err
	}
	if in.UserID <= 0 {
		return "", fmt.Errorf("payment without user: %w", domain.ErrUnauthorized)
	}
	return card, nil
}

type finalized struct {
	details *domain.BookingDetails
	payment *domain.Payment
	receipt *domain.Receipt
}

// Finalize records a payment for a pending booking, confirms it and issues
// the receipt record in one unit of work with the booking row locked. The
// card number is validated before any lock is taken and only its last four
// digits are stored.
func (s *PaymentService) Finalize(ctx context.Context, input FinalizeInput) (*domain.PaymentResult, error) {
	card, err := input.validate()
	if err != nil {
		metrics.Payments.WithLabelValues(domain.Kind(err)).Inc()
		return nil, err
	}
	method := strings.TrimSpace(input.PaymentMethod)
	lastFour := card[len(card)-4:]

	var out *finalized
	for attempt := 1; ; attempt++ {
		out, err = s.finalizeOnce(ctx, input.BookingID, input.UserID, method, lastFour)
		if !errors.Is(err, domain.ErrDuplicateCode) || attempt == maxCodeAttempts {
			break
		}
		metrics.CodeRetries.WithLabelValues("finalize").Inc()
		s.logger.Warn("receipt number collided, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		err = domain.Classify(err)
		metrics.Payments.WithLabelValues(domain.Kind(err)).Inc()
		if errors.Is(err, domain.ErrInternal) {
			s.logger.Error("finalize failed", zap.Int64("booking_id", input.BookingID), zap.Error(err))
		}
		return nil, err
	}
	metrics.Payments.WithLabelValues("ok").Inc()

	s.afterFinalize(ctx, out)

	return &domain.PaymentResult{
		PaymentID:     out.payment.ID,
		TransactionID: out.payment.TransactionID,
		ReceiptID:     out.receipt.ID,
		ReceiptNumber: out.receipt.Number,
		AmountCents:   out.payment.AmountCents,
	}, nil
}

func (s *PaymentService) finalizeOnce(ctx context.Context, bookingID, userID int64, method, lastFour string) (*finalized, error) {
	var out *finalized
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		details, err := tx.LockBooking(ctx, bookingID, userID)
		if err != nil {
			return err
		}
		if details.Status != domain.BookingStatusPending {
			return fmt.Errorf("booking %s is %s: %w", details.Reference, details.Status, domain.ErrInvalidState)
		}
		paid, err := tx.PaymentExists(ctx, details.ID)
		if err != nil {
			return err
		}
		if paid {
			return fmt.Errorf("booking %s: %w", details.Reference, domain.ErrAlreadyPaid)
		}

		payment := &domain.Payment{
			BookingID:     details.ID,
			AmountCents:   details.Flight.PriceCents,
			Method:        method,
			CardLastFour:  lastFour,
			TransactionID: codes.TransactionID(s.now()),
			Status:        domain.PaymentStatusCompleted,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.ConfirmBooking(ctx, details.ID); err != nil {
			return err
		}
		receipt := &domain.Receipt{
			BookingID: details.ID,
			Number:    s.newReceiptNumber(),
		}
		if err := tx.InsertReceipt(ctx, receipt); err != nil {
			return err
		}

		details.Status = domain.BookingStatusConfirmed
		out = &finalized{details: details, payment: payment, receipt: receipt}
		return nil
	})
	return out, err
}

// afterFinalize runs once the unit has committed. Nothing here can change
// the outcome reported to the caller.
func (s *PaymentService) afterFinalize(ctx context.Context, out *finalized) {
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, out.receipt.ID); err != nil {
			s.logger.Warn("failed to dispatch receipt generation",
				zap.String("receipt_number", out.receipt.Number), zap.Error(err))
		}
	}
	if s.events != nil {
		event := kafka.BookingEvent{
			Type:           kafka.EventBookingConfirmed,
			BookingID:      out.details.ID,
			Reference:      out.details.Reference,
			FlightID:       out.details.FlightID,
			UserID:         out.details.UserID,
			PassengerName:  out.details.PassengerName,
			PassengerEmail: out.details.PassengerEmail,
			SeatLabel:      out.details.SeatLabel,
			Status:         string(out.details.Status),
			AmountCents:    out.payment.AmountCents,
			ReceiptNumber:  out.receipt.Number,
		}
		if err := s.events.PublishBookingEvent(ctx, event); err != nil {
			s.logger.Warn("failed to publish booking_confirmed",
				zap.String("reference", out.details.Reference), zap.Error(err))
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
