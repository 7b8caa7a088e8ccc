// Package repotest provides an in-memory store that implements the
// repository unit of work and read interfaces. Units of work run one at a
// time and are rolled back when fn fails, which mirrors the row locks and
// transactions of the Postgres implementation closely enough for service
// tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type state struct {
	flights  map[int64]domain.Flight
	bookings map[int64]domain.Booking
	payments map[int64]domain.Payment // by booking id
	receipts map[int64]domain.Receipt // by receipt id
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		flights:  make(map[int64]domain.Flight, len(s.flights)),
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		payments: make(map[int64]domain.Payment, len(s.payments)),
		receipts: make(map[int64]domain.Receipt, len(s.receipts)),
		nextID:   s.nextID,
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

type Store struct {
	mu      sync.Mutex
	st      *state
	failOn  map[string]error
	now     func() time.Time
	commits int
}

func NewStore() *Store {
	return &Store{
		st: &state{
			flights:  map[int64]domain.Flight{},
			bookings: map[int64]domain.Booking{},
			payments: map[int64]domain.Payment{},
			receipts: map[int64]domain.Receipt{},
		},
		failOn: map[string]error{},
		now:    time.Now,
	}
}

// FailOn makes every later call of the named Tx method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[method] = err
}

func (s *Store) AddFlight(f domain.Flight) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextID++
	f.ID = s.st.nextID
	if f.Status == "" {
		f.Status = domain.FlightStatusScheduled
	}
	s.st.flights[f.ID] = f
	return f.ID
}

func (s *Store) Flight(id int64) domain.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.flights[id]
}

func (s *Store) Booking(id int64) (domain.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	return b, ok
}

func (s *Store) Bookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.st.bookings))
	for _, b := range s.st.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Payment(bookingID int64) (domain.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.payments[bookingID]
	return p, ok
}

func (s *Store) Receipts() []domain.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Receipt, 0, len(s.st.receipts))
	for _, r := range s.st.receipts {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Commits reports how many units of work committed.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&tx{store: s, st: work}); err != nil {
		return err
	}
	s.st = work
	s.commits++
	return nil
}

type tx struct {
	store *Store
	st    *state
}

func (t *tx) fail(method string) error {
	return t.store.failOn[method]
}

func (t *tx) LockFlight(_ context.Context, flightID int64) (*domain.Flight, error) {
	if err := t.fail("LockFlight"); err != nil {
		return nil, err
	}
	f, ok := t.st.flights[flightID]
	if !ok {
		return nil, fmt.Errorf("flight %d: %w", flightID, domain.ErrNotFound)
	}
	return &f, nil
}

func (t *tx) DecrementSeats(_ context.Context, flightID int64) error {
	if err := t.fail("DecrementSeats"); err != nil {
		return err
	}
	f, ok := t.st.flights[flightID]
	if !ok || f.AvailableSeats <= 0 {
		return fmt.Errorf("flight %d: %w", flightID, domain.ErrFlightNotAvailable)
	}
	f.AvailableSeats--
	t.st.flights[flightID] = f
	return nil
}

func (t *tx) InsertBooking(_ context.Context, b *domain.Booking) error {
	if err := t.fail("InsertBooking"); err != nil {
		return err
	}
	for _, existing := range t.st.bookings {
		if existing.Reference == b.Reference {
			return domain.ErrDuplicateCode
		}
		if existing.FlightID == b.FlightID && existing.SeatLabel == b.SeatLabel {
			return fmt.Errorf("seat %s taken: %w", b.SeatLabel, domain.ErrFlightNotAvailable)
		}
	}
	t.st.nextID++
	b.ID = t.st.nextID
	b.CreatedAt = t.store.now()
	b.UpdatedAt = b.CreatedAt
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *tx) LockBooking(_ context.Context, bookingID, userID int64) (*domain.BookingDetails, error) {
	if err := t.fail("LockBooking"); err != nil {
		return nil, err
	}
	b, ok := t.st.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}
	return &domain.BookingDetails{Booking: b, Flight: t.st.flights[b.FlightID]}, nil
}

func (t *tx) PaymentExists(_ context.Context, bookingID int64) (bool, error) {
	if err := t.fail("PaymentExists"); err != nil {
		return false, err
	}
	_, ok := t.st.payments[bookingID]
	return ok, nil
}

func (t *tx) InsertPayment(_ context.Context, p *domain.Payment) error {
	if err := t.fail("InsertPayment"); err != nil {
		return err
	}
	if _, ok := t.st.payments[p.BookingID]; ok {
		return domain.ErrAlreadyPaid
	}
	t.st.nextID++
	p.ID = t.st.nextID
	p.CreatedAt = t.store.now()
	t.st.payments[p.BookingID] = *p
	return nil
}

func (t *tx) ConfirmBooking(_ context.Context, bookingID int64) error {
	if err := t.fail("ConfirmBooking"); err != nil {
		return err
	}
	b, ok := t.st.bookings[bookingID]
	if !ok || b.Status != domain.BookingStatusPending {
		return fmt.Errorf("booking %d: %w", bookingID, domain.ErrInvalidState)
	}
	b.Status = domain.BookingStatusConfirmed
	b.UpdatedAt = t.store.now()
	t.st.bookings[bookingID] = b
	return nil
}

func (t *tx) InsertReceipt(_ context.Context, r *domain.Receipt) error {
	if err := t.fail("InsertReceipt"); err != nil {
		return err
	}
	for _, existing := range t.st.receipts {
		if existing.Number == r.Number {
			return domain.ErrDuplicateCode
		}
		if existing.BookingID == r.BookingID {
			return domain.ErrAlreadyPaid
		}
	}
	t.st.nextID++
	r.ID = t.st.nextID
	r.GeneratedAt = t.store.now()
	t.st.receipts[r.ID] = *r
	return nil
}

// GetForUser implements repository.BookingRepository.
func (s *Store) GetForUser(_ context.Context, bookingID, userID int64) (*domain.BookingDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}
	return &domain.BookingDetails{Booking: b, Flight: s.st.flights[b.FlightID]}, nil
}

func (s *Store) ListForUser(_ context.Context, userID int64) ([]domain.BookingDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BookingDetails
	for _, b := range s.st.bookings {
		if b.UserID == userID {
			out = append(out, domain.BookingDetails{Booking: b, Flight: s.st.flights[b.FlightID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ReceiptRepository returns a view implementing repository.ReceiptRepository.
func (s *Store) ReceiptRepository() repository.ReceiptRepository {
	return receiptView{s}
}

type receiptView struct {
	s *Store
}

func (v receiptView) record(r domain.Receipt) *domain.ReceiptRecord {
	b := v.s.st.bookings[r.BookingID]
	f := v.s.st.flights[b.FlightID]
	p := v.s.st.payments[r.BookingID]
	return &domain.ReceiptRecord{
		ReceiptID:      r.ID,
		ReceiptNumber:  r.Number,
		GeneratedAt:    r.GeneratedAt,
		ArtifactPath:   r.ArtifactPath,
		BookingID:      b.ID,
		Reference:      b.Reference,
		BookingStatus:  b.Status,
		PassengerName:  b.PassengerName,
		PassengerEmail: b.PassengerEmail,
		PassengerPhone: b.PassengerPhone,
		SeatLabel:      b.SeatLabel,
		FlightNumber:   f.FlightNumber,
		Airline:        f.Airline,
		Origin:         f.Origin,
		Destination:    f.Destination,
		DepartureTime:  f.DepartureTime,
		ArrivalTime:    f.ArrivalTime,
		AmountCents:    p.AmountCents,
		PaymentMethod:  p.Method,
		TransactionID:  p.TransactionID,
		PaidAt:         p.CreatedAt,
	}
}

func (v receiptView) GetForUser(_ context.Context, bookingID, userID int64) (*domain.ReceiptRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, r := range v.s.st.receipts {
		if r.BookingID == bookingID && v.s.st.bookings[bookingID].UserID == userID {
			return v.record(r), nil
		}
	}
	return nil, fmt.Errorf("receipt for booking %d: %w", bookingID, domain.ErrNotFound)
}

func (v receiptView) GetByID(_ context.Context, receiptID int64) (*domain.ReceiptRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.st.receipts[receiptID]
	if !ok {
		return nil, fmt.Errorf("receipt %d: %w", receiptID, domain.ErrNotFound)
	}
	return v.record(r), nil
}

func (v receiptView) AttachArtifact(_ context.Context, receiptID int64, path string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.st.receipts[receiptID]
	if !ok {
		return fmt.Errorf("receipt %d: %w", receiptID, domain.ErrNotFound)
	}
	r.ArtifactPath = path
	v.s.st.receipts[receiptID] = r
	return nil
}

func (v receiptView) ListMissingArtifacts(_ context.Context, generatedBefore time.Time, limit int) ([]int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var ids []int64
	for _, r := range v.s.st.receipts {
		if r.ArtifactPath == "" && r.GeneratedAt.Before(generatedBefore) {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

var (
	_ repository.TxManager         = (*Store)(nil)
	_ repository.Tx                = (*tx)(nil)
	_ repository.BookingRepository = (*Store)(nil)
	_ repository.ReceiptRepository = receiptView{}
)
