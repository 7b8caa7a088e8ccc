package kafka

import (
	"context"
	"time"
)

// Event types published on the booking topic.
const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
)

type BookingEvent struct {
	Type           string    `json:"type"`
	BookingID      int64     `json:"booking_id"`
	Reference      string    `json:"reference"`
	FlightID       int64     `json:"flight_id"`
	UserID         int64     `json:"user_id"`
	PassengerName  string    `json:"passenger_name"`
	PassengerEmail string    `json:"passenger_email"`
	SeatLabel      string    `json:"seat_label"`
	Status         string    `json:"status"`
	AmountCents    int64     `json:"amount_cents"`
	ReceiptNumber  string    `json:"receipt_number,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// EventPublisher fans a booking event out to the booking topic and, when
// configured, to the notifications topic. Events are keyed by reference so
// all events of one booking land on the same partition.
type EventPublisher struct {
	producer           Publisher
	bookingTopic       string
	notificationsTopic string
}

func NewEventPublisher(producer Publisher, bookingTopic, notificationsTopic string) *EventPublisher {
	return &EventPublisher{
		producer:           producer,
		bookingTopic:       bookingTopic,
		notificationsTopic: notificationsTopic,
	}
}

func (p *EventPublisher) PublishBookingEvent(ctx context.Context, event BookingEvent) error {
	if p == nil || p.producer == nil || p.bookingTopic == "" {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := p.producer.Publish(ctx, p.bookingTopic, event.Reference, event); err != nil {
		return err
	}
	if p.notificationsTopic != "" {
		return p.producer.Publish(ctx, p.notificationsTopic, event.Reference, event)
	}
	return nil
}
