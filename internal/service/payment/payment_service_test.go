package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, receiptID int64) error {
	args := m.Called(ctx, receiptID)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

const ownerID = int64(7)

var seq int

// seedPendingBooking reserves seat 1A on a fresh flight for ownerID.
func seedPendingBooking(t *testing.T, store *repotest.Store) int64 {
	t.Helper()
	flightID := store.AddFlight(domain.Flight{
		FlightNumber:   "FB200",
		Origin:         "Madrid",
		Destination:    "Dublin",
		TotalSeats:     6,
		AvailableSeats: 6,
		PriceCents:     25000,
	})
	seq++
	var bookingID int64
	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		b := &domain.Booking{
			Reference:      fmt.Sprintf("BK%08d", seq),
			UserID:         ownerID,
			FlightID:       flightID,
			PassengerName:  "Grace Hopper",
			PassengerEmail: "grace@example.com",
			PassengerPhone: "555-0100",
			SeatLabel:      "1A",
			Status:         domain.BookingStatusPending,
		}
		if err := tx.InsertBooking(context.Background(), b); err != nil {
			return err
		}
		bookingID = b.ID
		return tx.DecrementSeats(context.Background(), flightID)
	})
	require.NoError(t, err)
	return bookingID
}

func validInput(bookingID int64) FinalizeInput {
	return FinalizeInput{
		BookingID:     bookingID,
		PaymentMethod: "credit_card",
		CardNumber:    "4111 1111 1111 1111",
		UserID:        ownerID,
	}
}

func TestNormalizeCardNumber(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
		valid    bool
	}{
		{raw: "4111 1111 1111 1111", expected: "4111111111111111", valid: true},
		{raw: "4111\t1111\n1111 1111", expected: "4111111111111111", valid: true},
		{raw: "4222222222222", expected: "4222222222222", valid: true},
		{raw: "6011000990139424123", expected: "6011000990139424123", valid: true},
		{raw: "123"},
		{raw: ""},
		{raw: "60110009901394241234"},
		{raw: "4111-1111-1111-1111"},
		{raw: "4111 1111 1111 111a"},
	}

	for _, tc := range testCases {
		got, err := NormalizeCardNumber(tc.raw)
		if tc.valid {
			require.NoError(t, err, tc.raw)
			assert.Equal(t, tc.expected, got)
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidInput, tc.raw)
	}
}

func TestPaymentService_Finalize_Success(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	mockDispatcher := &MockDispatcher{}
	mockEvents := &MockEventPublisher{}
	service := NewPaymentService(store, mockDispatcher, WithEvents(mockEvents))
	ctx := context.Background()

	mockDispatcher.On("Dispatch", ctx, mock.AnythingOfType("int64")).Return(nil).Once()
	mockEvents.On("PublishBookingEvent", ctx, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingConfirmed && e.Status == string(domain.BookingStatusConfirmed) && e.ReceiptNumber != ""
	})).Return(nil).Once()

	result, err := service.Finalize(ctx, validInput(bookingID))

	require.NoError(t, err)
	assert.Regexp(t, `^TXN\d+$`, result.TransactionID)
	assert.Regexp(t, `^RCP[A-Z0-9]{10}$`, result.ReceiptNumber)
	assert.Equal(t, int64(25000), result.AmountCents)

	booking, _ := store.Booking(bookingID)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)

	payment, ok := store.Payment(bookingID)
	require.True(t, ok)
	assert.Equal(t, "1111", payment.CardLastFour)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, result.PaymentID, payment.ID)

	receipts := store.Receipts()
	require.Len(t, receipts, 1)
	assert.Equal(t, result.ReceiptID, receipts[0].ID)
	assert.False(t, receipts[0].HasArtifact())

	mockDispatcher.AssertCalled(t, "Dispatch", ctx, result.ReceiptID)
	mockEvents.AssertExpectations(t)
}

func TestPaymentService_Finalize_InvalidCardTouchesNothing(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	commits := store.Commits()
	mockDispatcher := &MockDispatcher{}
	service := NewPaymentService(store, mockDispatcher)

	input := validInput(bookingID)
	input.CardNumber = "123"

	_, err := service.Finalize(context.Background(), input)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, commits, store.Commits())
	booking, _ := store.Booking(bookingID)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestPaymentService_Finalize_MissingMethod(t *testing.T) {
	store := repotest.NewStore()
	service := NewPaymentService(store, nil)

	input := validInput(1)
	input.PaymentMethod = " "

	_, err := service.Finalize(context.Background(), input)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPaymentService_Finalize_Replay(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	mockDispatcher := &MockDispatcher{}
	mockDispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()
	service := NewPaymentService(store, mockDispatcher)
	ctx := context.Background()

	first, err := service.Finalize(ctx, validInput(bookingID))
	require.NoError(t, err)

	_, err = service.Finalize(ctx, validInput(bookingID))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrAlreadyPaid))
	payment, _ := store.Payment(bookingID)
	assert.Equal(t, first.PaymentID, payment.ID)
	assert.Len(t, store.Receipts(), 1)
	mockDispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestPaymentService_Finalize_ConcurrentReplays(t *testing.T) {
	const attempts = 12

	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	mockDispatcher := &MockDispatcher{}
	mockDispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	service := NewPaymentService(store, mockDispatcher)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Finalize(context.Background(), validInput(bookingID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			assert.True(t, errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrAlreadyPaid), err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, store.Receipts(), 1)
	mockDispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestPaymentService_Finalize_ForeignBookingIsNotFound(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	service := NewPaymentService(store, nil)

	input := validInput(bookingID)
	input.UserID = ownerID + 1

	_, err := service.Finalize(context.Background(), input)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, paid := store.Payment(bookingID)
	assert.False(t, paid)
}

func TestPaymentService_Finalize_ExistingPaymentOnPendingBooking(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	require.NoError(t, store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertPayment(context.Background(), &domain.Payment{BookingID: bookingID, AmountCents: 1, Method: "cash", Status: domain.PaymentStatusCompleted})
	}))
	service := NewPaymentService(store, nil)

	_, err := service.Finalize(context.Background(), validInput(bookingID))

	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	booking, _ := store.Booking(bookingID)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
}

func TestPaymentService_Finalize_FailureLeavesNoTrace(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	store.FailOn("InsertReceipt", errors.New("disk full"))
	mockDispatcher := &MockDispatcher{}
	mockEvents := &MockEventPublisher{}
	service := NewPaymentService(store, mockDispatcher, WithEvents(mockEvents))

	_, err := service.Finalize(context.Background(), validInput(bookingID))

	assert.ErrorIs(t, err, domain.ErrInternal)
	booking, _ := store.Booking(bookingID)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	_, paid := store.Payment(bookingID)
	assert.False(t, paid)
	assert.Empty(t, store.Receipts())
	mockDispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	mockEvents.AssertNotCalled(t, "PublishBookingEvent", mock.Anything, mock.Anything)
}

func TestPaymentService_Finalize_DispatchFailureDoesNotFail(t *testing.T) {
	store := repotest.NewStore()
	bookingID := seedPendingBooking(t, store)
	mockDispatcher := &MockDispatcher{}
	mockDispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("queue unavailable")).Once()
	service := NewPaymentService(store, mockDispatcher)

	result, err := service.Finalize(context.Background(), validInput(bookingID))

	require.NoError(t, err)
	assert.NotZero(t, result.ReceiptID)
	booking, _ := store.Booking(bookingID)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	mockDispatcher.AssertExpectations(t)
}

func TestPaymentService_Finalize_RetriesCollidingReceiptNumber(t *testing.T) {
	store := repotest.NewStore()
	firstBooking := seedPendingBooking(t, store)
	secondBooking := seedPendingBooking(t, store)

	numbers := []string{"RCP0000000001", "RCP0000000001", "RCP0000000002"}
	next := 0
	service := NewPaymentService(store, nil, WithReceiptNumberGenerator(func() string {
		n := numbers[next]
		next++
		return n
	}))
	ctx := context.Background()

	_, err := service.Finalize(ctx, validInput(firstBooking))
	require.NoError(t, err)

	result, err := service.Finalize(ctx, validInput(secondBooking))
	require.NoError(t, err)
	assert.Equal(t, "RCP0000000002", result.ReceiptNumber)
	assert.Len(t, store.Receipts(), 2)
}
