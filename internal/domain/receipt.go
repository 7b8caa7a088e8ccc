package domain

import "time"

type Receipt struct {
	ID          int64
	BookingID   int64
	Number      string
	GeneratedAt time.Time
	// ArtifactPath stays empty until the PDF has been written.
	ArtifactPath string
}

// ReceiptFileName is the artifact file name for a receipt number, used both
// on disk and as the download name.
func ReceiptFileName(number string) string {
	return "receipt_" + number + ".pdf"
}

func (r *Receipt) HasArtifact() bool {
	return r.ArtifactPath != ""
}

// ReceiptRecord is the flattened view handed to the receipt issuer and
// returned by the receipt lookup.
type ReceiptRecord struct {
	ReceiptID      int64
	ReceiptNumber  string
	GeneratedAt    time.Time
	ArtifactPath   string
	BookingID      int64
	Reference      string
	BookingStatus  BookingStatus
	PassengerName  string
	PassengerEmail string
	PassengerPhone string
	SeatLabel      string
	FlightNumber   string
	Airline        string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	AmountCents    int64
	PaymentMethod  string
	TransactionID  string
	PaidAt         time.Time
}
