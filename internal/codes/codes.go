// Package codes generates the human-facing identifiers printed on bookings,
// payments and receipts. None of them are primary keys.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	BookingPrefix = "BK"
	ReceiptPrefix = "RCP"

	bookingLength = 8
	receiptLength = 10
)

// BookingReference returns "BK" followed by 8 symbols of [A-Z0-9].
func BookingReference() string {
	return Random(BookingPrefix, bookingLength)
}

// ReceiptNumber returns "RCP" followed by 10 symbols of [A-Z0-9].
func ReceiptNumber() string {
	return Random(ReceiptPrefix, receiptLength)
}

// TransactionID returns "TXN", the unix time in milliseconds and a random
// suffix below one million. Informational only.
func TransactionID(now time.Time) string {
	return fmt.Sprintf("TXN%d%d", now.UnixMilli(), randInt(1_000_000))
}

func Random(prefix string, n int) string {
	buf := make([]byte, len(prefix)+n)
	copy(buf, prefix)
	for i := len(prefix); i < len(buf); i++ {
		buf[i] = alphabet[randInt(len(alphabet))]
	}
	return string(buf)
}

func randInt(max int) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("codes: read random: %v", err))
	}
	return v.Int64()
}
