package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender turns booking events into customer notifications. Delivery is a
// structured log line; no mail transport is wired.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.PassengerEmail == "" {
		return nil
	}
	s.logger.Info("sending booking notification",
		zap.String("to", event.PassengerEmail),
		zap.String("subject", Subject(event)),
		zap.String("reference", event.Reference),
		zap.String("seat", event.SeatLabel))
	return nil
}

func Subject(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s reserved: seat %s", event.Reference, event.SeatLabel)
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s confirmed: receipt %s", event.Reference, event.ReceiptNumber)
	default:
		return fmt.Sprintf("Booking %s updated", event.Reference)
	}
}
