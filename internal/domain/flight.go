package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusCancelled FlightStatus = "cancelled"
)

type Flight struct {
	ID             int64        `json:"id"`
	FlightNumber   string       `json:"flight_number"`
	Airline        string       `json:"airline"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	DepartureTime  time.Time    `json:"departure_time"`
	ArrivalTime    time.Time    `json:"arrival_time"`
	TotalSeats     int          `json:"total_seats"`
	AvailableSeats int          `json:"available_seats"`
	PriceCents     int64        `json:"price_cents"`
	Status         FlightStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Bookable reports whether a seat can still be reserved on the flight.
func (f *Flight) Bookable() bool {
	return f.Status == FlightStatusScheduled && f.AvailableSeats > 0
}

// FlightFilter narrows the public flight listing.
type FlightFilter struct {
	Origin      string
	Destination string
	// DepartsFrom limits results to flights departing on or after this day.
	// Zero means "from now".
	DepartsFrom time.Time
	Passengers  int
}
