package receipt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/pdf"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) Issue(ctx context.Context, record *domain.ReceiptRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, receiptID int64) error {
	args := m.Called(ctx, receiptID)
	return args.Error(0)
}

const ownerID = int64(3)

// seedPaidBooking writes a confirmed booking with payment and a receipt that
// has no artifact yet, the state finalize leaves behind.
func seedPaidBooking(t *testing.T, store *repotest.Store, number string) (bookingID, receiptID int64) {
	t.Helper()
	ctx := context.Background()
	flightID := store.AddFlight(domain.Flight{
		FlightNumber:   "FB300",
		Airline:        "Flight Booking Air",
		Origin:         "Rome",
		Destination:    "Prague",
		DepartureTime:  time.Date(2026, 11, 2, 9, 30, 0, 0, time.UTC),
		ArrivalTime:    time.Date(2026, 11, 2, 11, 45, 0, 0, time.UTC),
		TotalSeats:     6,
		AvailableSeats: 6,
		PriceCents:     8950,
	})
	err := store.WithinTx(ctx, func(tx repository.Tx) error {
		b := &domain.Booking{
			Reference:      "BK" + number[3:11],
			UserID:         ownerID,
			FlightID:       flightID,
			PassengerName:  "Katherine Johnson",
			PassengerEmail: "kj@example.com",
			PassengerPhone: "555-0199",
			SeatLabel:      "1A",
			Status:         domain.BookingStatusPending,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.DecrementSeats(ctx, flightID); err != nil {
			return err
		}
		p := &domain.Payment{BookingID: b.ID, AmountCents: 8950, Method: "credit_card", CardLastFour: "1111", TransactionID: "TXN1", Status: domain.PaymentStatusCompleted}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.ConfirmBooking(ctx, b.ID); err != nil {
			return err
		}
		r := &domain.Receipt{BookingID: b.ID, Number: number}
		if err := tx.InsertReceipt(ctx, r); err != nil {
			return err
		}
		bookingID, receiptID = b.ID, r.ID
		return nil
	})
	require.NoError(t, err)
	return bookingID, receiptID
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0o600))
	return path
}

func TestReceiptService_GetReceipt_BeforeGeneration(t *testing.T) {
	store := repotest.NewStore()
	bookingID, _ := seedPaidBooking(t, store, "RCPAAAAAAAAAA")
	service := NewReceiptService(store.ReceiptRepository(), nil, nil)

	record, err := service.GetReceipt(context.Background(), bookingID, ownerID)

	require.NoError(t, err)
	assert.Equal(t, "RCPAAAAAAAAAA", record.ReceiptNumber)
	assert.Empty(t, record.ArtifactPath)
	assert.Equal(t, domain.BookingStatusConfirmed, record.BookingStatus)
	assert.Equal(t, int64(8950), record.AmountCents)
}

func TestReceiptService_GetReceipt_NotOwner(t *testing.T) {
	store := repotest.NewStore()
	bookingID, _ := seedPaidBooking(t, store, "RCPAAAAAAAAAA")
	service := NewReceiptService(store.ReceiptRepository(), nil, nil)

	_, err := service.GetReceipt(context.Background(), bookingID, ownerID+1)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiptService_Download(t *testing.T) {
	store := repotest.NewStore()
	bookingID, receiptID := seedPaidBooking(t, store, "RCPBBBBBBBBBB")
	receipts := store.ReceiptRepository()
	service := NewReceiptService(receipts, nil, nil)
	ctx := context.Background()

	_, err := service.Download(ctx, bookingID, ownerID)
	assert.ErrorIs(t, err, ErrArtifactUnavailable)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, receipts.AttachArtifact(ctx, receiptID, filepath.Join(t.TempDir(), "gone.pdf")))
	_, err = service.Download(ctx, bookingID, ownerID)
	assert.ErrorIs(t, err, ErrArtifactUnavailable)

	path := writeFile(t, "receipt_RCPBBBBBBBBBB.pdf")
	require.NoError(t, receipts.AttachArtifact(ctx, receiptID, path))
	download, err := service.Download(ctx, bookingID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, path, download.Path)
	assert.Equal(t, "receipt_RCPBBBBBBBBBB.pdf", download.FileName)
}

func TestReceiptService_Generate_AttachesArtifact(t *testing.T) {
	store := repotest.NewStore()
	bookingID, receiptID := seedPaidBooking(t, store, "RCPCCCCCCCCCC")
	mockIssuer := &MockIssuer{}
	service := NewReceiptService(store.ReceiptRepository(), mockIssuer, nil)
	ctx := context.Background()

	path := writeFile(t, "receipt_RCPCCCCCCCCCC.pdf")
	mockIssuer.On("Issue", ctx, mock.MatchedBy(func(r *domain.ReceiptRecord) bool {
		return r.ReceiptNumber == "RCPCCCCCCCCCC" && r.SeatLabel == "1A"
	})).Return(path, nil).Once()

	require.NoError(t, service.Generate(ctx, receiptID))
	// second run sees the artifact on disk and does nothing
	require.NoError(t, service.Generate(ctx, receiptID))

	record, err := service.GetReceipt(ctx, bookingID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, path, record.ArtifactPath)
	mockIssuer.AssertExpectations(t)
}

func TestReceiptService_Generate_IssuerFailureKeepsPointerUnset(t *testing.T) {
	store := repotest.NewStore()
	bookingID, receiptID := seedPaidBooking(t, store, "RCPDDDDDDDDDD")
	mockIssuer := &MockIssuer{}
	service := NewReceiptService(store.ReceiptRepository(), mockIssuer, nil)
	ctx := context.Background()

	mockIssuer.On("Issue", ctx, mock.Anything).Return("", errors.New("font missing")).Once()

	err := service.Generate(ctx, receiptID)

	require.Error(t, err)
	record, err := service.GetReceipt(ctx, bookingID, ownerID)
	require.NoError(t, err)
	assert.Empty(t, record.ArtifactPath)
}

func TestReceiptService_Generate_UnknownReceipt(t *testing.T) {
	store := repotest.NewStore()
	service := NewReceiptService(store.ReceiptRepository(), &MockIssuer{}, nil)

	err := service.Generate(context.Background(), 99)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReceiptService_GenerateWithPDFIssuer(t *testing.T) {
	store := repotest.NewStore()
	bookingID, receiptID := seedPaidBooking(t, store, "RCPEEEEEEEEEE")
	dir := t.TempDir()
	service := NewReceiptService(store.ReceiptRepository(), pdf.NewIssuer(dir), nil)
	ctx := context.Background()

	require.NoError(t, service.Generate(ctx, receiptID))

	download, err := service.Download(ctx, bookingID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "receipt_RCPEEEEEEEEEE.pdf"), download.Path)
	assert.Equal(t, filepath.Base(download.Path), download.FileName)

	data, err := os.ReadFile(download.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestReceiptService_Backfill(t *testing.T) {
	store := repotest.NewStore()
	_, missing := seedPaidBooking(t, store, "RCPFFFFFFFFFF")
	_, done := seedPaidBooking(t, store, "RCPGGGGGGGGGG")
	receipts := store.ReceiptRepository()
	require.NoError(t, receipts.AttachArtifact(context.Background(), done, "/receipts/receipt_RCPGGGGGGGGGG.pdf"))

	service := NewReceiptService(receipts, nil, nil)
	service.now = func() time.Time { return time.Now().Add(time.Hour) }
	mockDispatcher := &MockDispatcher{}
	ctx := context.Background()
	mockDispatcher.On("Dispatch", ctx, missing).Return(nil).Once()

	count, err := service.Backfill(ctx, mockDispatcher, 10*time.Minute, 100)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	mockDispatcher.AssertExpectations(t)
}

func TestReceiptService_Backfill_SkipsRecentReceipts(t *testing.T) {
	store := repotest.NewStore()
	seedPaidBooking(t, store, "RCPHHHHHHHHHH")
	service := NewReceiptService(store.ReceiptRepository(), nil, nil)
	mockDispatcher := &MockDispatcher{}

	count, err := service.Backfill(context.Background(), mockDispatcher, 10*time.Minute, 100)

	require.NoError(t, err)
	assert.Zero(t, count)
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestReceiptService_Backfill_ReportsDispatchErrors(t *testing.T) {
	store := repotest.NewStore()
	_, first := seedPaidBooking(t, store, "RCPIIIIIIIIII")
	_, second := seedPaidBooking(t, store, "RCPJJJJJJJJJJ")
	service := NewReceiptService(store.ReceiptRepository(), nil, nil)
	service.now = func() time.Time { return time.Now().Add(time.Hour) }
	mockDispatcher := &MockDispatcher{}
	mockDispatcher.On("Dispatch", mock.Anything, first).Return(errors.New("redis down")).Once()
	mockDispatcher.On("Dispatch", mock.Anything, second).Return(nil).Once()

	count, err := service.Backfill(context.Background(), mockDispatcher, time.Minute, 100)

	assert.Error(t, err)
	assert.Equal(t, 1, count)
}
