package domain

import "time"

type PaymentStatus string

const PaymentStatusCompleted PaymentStatus = "completed"

type Payment struct {
	ID            int64
	BookingID     int64
	AmountCents   int64
	Method        string
	CardLastFour  string
	TransactionID string
	Status        PaymentStatus
	CreatedAt     time.Time
}

// PaymentResult is the outcome of a successful finalize call.
type PaymentResult struct {
	PaymentID     int64  `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	ReceiptID     int64  `json:"receipt_id"`
	ReceiptNumber string `json:"receipt_number"`
	AmountCents   int64  `json:"amount_cents"`
}
