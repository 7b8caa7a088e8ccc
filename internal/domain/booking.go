package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
)

type Booking struct {
	ID             int64
	Reference      string
	UserID         int64
	FlightID       int64
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
	SeatLabel      string
	Status         BookingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingDetails is a booking joined with the flight it was made on.
type BookingDetails struct {
	Booking
	Flight Flight
}

// Reservation is the outcome of a successful reserve call.
type Reservation struct {
	BookingID   int64  `json:"booking_id"`
	Reference   string `json:"reference"`
	SeatLabel   string `json:"seat_label"`
	AmountCents int64  `json:"amount_cents"`
}
