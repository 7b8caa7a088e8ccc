package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/go-pdf/fpdf"
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

// Issuer writes receipt PDFs into a single directory, one file per receipt
// number. A regenerated receipt replaces the previous file atomically.
type Issuer struct {
	dir string
}

func NewIssuer(dir string) *Issuer {
	return &Issuer{dir: dir}
}

func (i *Issuer) Issue(ctx context.Context, record *domain.ReceiptRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipts dir: %w", err)
	}

	doc := render(record)
	if err := doc.Error(); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}

	tmp, err := os.CreateTemp(i.dir, ".receipt-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := doc.Output(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}

	target := filepath.Join(i.dir, domain.ReceiptFileName(record.ReceiptNumber))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("move receipt into place: %w", err)
	}
	return target, nil
}

func render(r *domain.ReceiptRecord) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Receipt "+r.ReceiptNumber, true)
	doc.SetCreationDate(r.GeneratedAt)
	doc.SetModificationDate(r.GeneratedAt)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, "Flight Booking Receipt", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, "Receipt "+r.ReceiptNumber, "", 1, "C", false, 0, "")
	doc.Ln(6)

	section := func(title string) {
		doc.SetFont("Helvetica", "B", 13)
		doc.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		doc.Ln(2)
	}
	line := func(label, value string) {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(50, 7, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
	}

	section("Booking")
	line("Reference", r.Reference)
	line("Status", string(r.BookingStatus))
	line("Passenger", r.PassengerName)
	line("Email", r.PassengerEmail)
	line("Phone", r.PassengerPhone)
	line("Seat", r.SeatLabel)
	doc.Ln(4)

	section("Flight")
	line("Flight", r.FlightNumber+" "+r.Airline)
	line("Route", r.Origin+" - "+r.Destination)
	line("Departure", r.DepartureTime.UTC().Format(timeLayout))
	line("Arrival", r.ArrivalTime.UTC().Format(timeLayout))
	doc.Ln(4)

	section("Payment")
	line("Amount", FormatAmount(r.AmountCents))
	line("Method", r.PaymentMethod)
	line("Transaction", r.TransactionID)
	line("Paid at", r.PaidAt.UTC().Format(timeLayout))
	line("Issued at", r.GeneratedAt.UTC().Format(timeLayout))

	doc.Ln(10)
	doc.SetFont("Helvetica", "I", 9)
	doc.MultiCell(0, 5, "Please present your booking reference at check-in. This receipt was generated automatically.", "", "L", false)
	return doc
}

// FormatAmount renders cents as a dollar amount, e.g. 12999 -> "$129.99".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
