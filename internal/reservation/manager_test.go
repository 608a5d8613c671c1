package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/payment"
	"github.com/hyeonsu-kim/villa-booking/internal/pricing"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
)

// memStore is an in-memory Store that mirrors the repository's
// semantics: the overlap check and insert happen under one lock, and
// cancelled rows do not count toward the overlap set.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[string]*model.Reservation

	failCancel bool
	failDelete bool
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*model.Reservation)}
}

func (s *memStore) overlapsLocked(roomID string, in, out time.Time, skipID uint64) bool {
	for _, r := range s.rows {
		if r.ID == skipID || r.RoomID != roomID || r.Status == model.StatusCancelled {
			continue
		}
		if r.CheckIn.Before(out) && r.CheckOut.After(in) {
			return true
		}
	}
	return false
}

func (s *memStore) Create(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[res.Number]; ok {
		return repository.ErrNumberTaken
	}
	if s.overlapsLocked(res.RoomID, res.CheckIn, res.CheckOut, 0) {
		return repository.ErrDateConflict
	}
	s.nextID++
	res.ID = s.nextID
	cp := *res
	s.rows[res.Number] = &cp
	return nil
}

func (s *memStore) GetByNumber(_ context.Context, number string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[number]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) NumberExists(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[number]
	return ok, nil
}

func (s *memStore) Confirm(_ context.Context, id uint64, paymentRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id && r.Status == model.StatusPending {
			r.Status = model.StatusConfirmed
			r.PaymentRef = &paymentRef
			return nil
		}
	}
	// Mirrors the status-guarded UPDATE matching no row.
	return repository.ErrStaleStatus
}

func (s *memStore) Cancel(_ context.Context, id uint64, actor string, at time.Time) error {
	if s.failCancel {
		return errors.New("store unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			r.Status = model.StatusCancelled
			r.CancelActor = &actor
			r.CancelledAt = &at
		}
	}
	return nil
}

func (s *memStore) Revert(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapsLocked(res.RoomID, res.CheckIn, res.CheckOut, res.ID) {
		return repository.ErrDateConflict
	}
	for _, r := range s.rows {
		if r.ID == res.ID {
			r.Status = model.StatusConfirmed
			r.CancelActor = nil
			r.CancelledAt = nil
		}
	}
	return nil
}

func (s *memStore) Delete(_ context.Context, id uint64) error {
	if s.failDelete {
		return errors.New("store unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, r := range s.rows {
		if r.ID == id {
			delete(s.rows, n)
		}
	}
	return nil
}

func (s *memStore) SetCheckedIn(_ context.Context, id uint64, at time.Time) error {
	return s.setTime(id, func(r *model.Reservation) { r.CheckedInAt = &at })
}

func (s *memStore) SetCheckedOut(_ context.Context, id uint64, at time.Time) error {
	return s.setTime(id, func(r *model.Reservation) { r.CheckedOutAt = &at })
}

func (s *memStore) setTime(id uint64, apply func(*model.Reservation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			apply(r)
		}
	}
	return nil
}

func (s *memStore) SetHidden(_ context.Context, id uint64, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			r.Hidden = hidden
		}
	}
	return nil
}

type fakeRooms struct{ room model.Room }

func (f *fakeRooms) GetByID(_ context.Context, id string) (*model.Room, error) {
	if id != f.room.ID {
		return nil, repository.ErrRoomNotFound
	}
	cp := f.room
	return &cp, nil
}

type fakePricer struct{ price int64 }

func (f *fakePricer) Price(context.Context, string, time.Time, time.Time) (int64, []pricing.Night, error) {
	return f.price, nil, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	cancelErr   error
	cancelCalls int
	lastRef     string
	lastAmount  int64
}

func (f *fakeGateway) Initiate(context.Context, payment.InitiateRequest) (*payment.InitiateResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &payment.InitiateResult{TransactionID: "TX-1", RedirectURL: "https://pay.example.com/TX-1"}, nil
}

func (f *fakeGateway) Cancel(_ context.Context, ref string, amount int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	f.lastRef = ref
	f.lastAmount = amount
	return f.cancelErr
}

func newManager(store *memStore, gw *fakeGateway) *Manager {
	rooms := &fakeRooms{room: model.Room{
		ID: "A1", Zone: "A", Number: 1, Name: "Pine Villa A1",
		BaseOccupancy: 4, MaxOccupancy: 6, IsActive: true,
	}}
	m := NewManager(store, rooms, &fakePricer{price: 450000}, gw, zap.NewNop())
	return m
}

func createReq() CreateRequest {
	return CreateRequest{
		RoomID:   "A1",
		CheckIn:  time.Date(2025, time.March, 6, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC),
		Booker: model.Contact{
			Name: "Hong Gildong", Email: "gildong@example.com", Phone: "010-1234-5678",
		},
		Counts:        model.GuestCounts{Adult: 5},
		OptionKeys:    []string{"bbq_basic"},
		TermsAccepted: true,
		Device:        payment.DeviceDesktop,
	}
}

func TestCreateComputesTotals(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})

	out, err := m.Create(context.Background(), createReq())
	require.NoError(t, err)
	res := out.Reservation

	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, uint32(2), res.Nights)
	assert.Equal(t, int64(450000), res.RoomPrice)
	// One excess adult over base occupancy 4.
	assert.Equal(t, int64(30000), res.Surcharge)
	assert.Equal(t, int64(30000), res.OptionFee)
	assert.Equal(t, res.RoomPrice+res.Surcharge+res.OptionFee, res.TotalAmount)
	assert.Len(t, res.Number, 14)
	assert.Equal(t, "https://pay.example.com/TX-1", out.RedirectURL)
}

func TestCreateValidation(t *testing.T) {
	m := newManager(newMemStore(), &fakeGateway{})
	ctx := context.Background()

	cases := map[string]func(*CreateRequest){
		"terms":        func(r *CreateRequest) { r.TermsAccepted = false },
		"dates":        func(r *CreateRequest) { r.CheckOut = r.CheckIn },
		"contact":      func(r *CreateRequest) { r.Booker.Phone = "" },
		"no adult":     func(r *CreateRequest) { r.Counts = model.GuestCounts{Child: 2} },
		"over max occ": func(r *CreateRequest) { r.Counts = model.GuestCounts{Adult: 7} },
	}
	for name, mutate := range cases {
		req := createReq()
		mutate(&req)
		_, err := m.Create(ctx, req)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, name)
	}
}

func TestCreateConflictAfterAvailabilityRead(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	ctx := context.Background()

	_, err := m.Create(ctx, createReq())
	require.NoError(t, err)

	// Same room, overlapping range: rejected with the conflict sentinel.
	req := createReq()
	req.CheckIn = time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	req.CheckOut = time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	_, err = m.Create(ctx, req)
	assert.ErrorIs(t, err, repository.ErrDateConflict)
}

func TestCreateConcurrentAttemptsExactlyOneWins(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(context.Background(), createReq())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrDateConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
}

func TestCreatePaymentInitFailureDiscardsRow(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{initErr: errors.New("gateway down")})

	_, err := m.Create(context.Background(), createReq())
	assert.ErrorIs(t, err, ErrPaymentInitFailed)
	assert.Empty(t, store.rows)
}

func confirmed(t *testing.T, m *Manager, store *memStore) *model.Reservation {
	t.Helper()
	out, err := m.Create(context.Background(), createReq())
	require.NoError(t, err)
	res, err := m.Confirm(context.Background(), out.Reservation.Number, "TX-1")
	require.NoError(t, err)
	return res
}

func TestConfirmIsIdempotent(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	again, err := m.Confirm(context.Background(), res.Number, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, again.Status)
	require.NotNil(t, again.PaymentRef)
	assert.Equal(t, "TX-1", *again.PaymentRef)
}

func TestConfirmCancelledRejected(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	require.NoError(t, err)

	_, err = m.Confirm(context.Background(), res.Number, "TX-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// cancelBetweenStore cancels the row right before the guarded confirm
// write runs, simulating a cancellation landing between the manager's
// read and its status write.
type cancelBetweenStore struct {
	*memStore
}

func (s *cancelBetweenStore) Confirm(ctx context.Context, id uint64, paymentRef string) error {
	_ = s.memStore.Cancel(ctx, id, model.ActorAdmin, time.Now().UTC())
	return s.memStore.Confirm(ctx, id, paymentRef)
}

func TestConfirmLosingRaceToCancelRejected(t *testing.T) {
	inner := newMemStore()
	store := &cancelBetweenStore{memStore: inner}
	rooms := &fakeRooms{room: model.Room{
		ID: "A1", Zone: "A", Number: 1, Name: "Pine Villa A1",
		BaseOccupancy: 4, MaxOccupancy: 6, IsActive: true,
	}}
	m := NewManager(store, rooms, &fakePricer{price: 450000}, &fakeGateway{}, zap.NewNop())

	out, err := m.Create(context.Background(), createReq())
	require.NoError(t, err)

	_, err = m.Confirm(context.Background(), out.Reservation.Number, "TX-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// The row stays cancelled and the late payment ref is not recorded.
	row, err := inner.GetByNumber(context.Background(), out.Reservation.Number)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, row.Status)
	assert.Nil(t, row.PaymentRef)
}

// confirmBetweenStore lets another confirm win the same race; repeated
// gateway callbacks must still resolve as an idempotent success.
type confirmBetweenStore struct {
	*memStore
}

func (s *confirmBetweenStore) Confirm(ctx context.Context, id uint64, paymentRef string) error {
	_ = s.memStore.Confirm(ctx, id, "TX-FIRST")
	return s.memStore.Confirm(ctx, id, paymentRef)
}

func TestConfirmLosingRaceToConfirmStaysIdempotent(t *testing.T) {
	inner := newMemStore()
	store := &confirmBetweenStore{memStore: inner}
	rooms := &fakeRooms{room: model.Room{
		ID: "A1", Zone: "A", Number: 1, Name: "Pine Villa A1",
		BaseOccupancy: 4, MaxOccupancy: 6, IsActive: true,
	}}
	m := NewManager(store, rooms, &fakePricer{price: 450000}, &fakeGateway{}, zap.NewNop())

	out, err := m.Create(context.Background(), createReq())
	require.NoError(t, err)

	res, err := m.Confirm(context.Background(), out.Reservation.Number, "TX-SECOND")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	require.NotNil(t, res.PaymentRef)
	assert.Equal(t, "TX-FIRST", *res.PaymentRef)
}

func TestCancelRefundsThenTransitions(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	m := newManager(store, gw)
	res := confirmed(t, m, store)

	out, err := m.Cancel(context.Background(), res.Number, model.ActorGuest)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Status)
	require.NotNil(t, out.CancelActor)
	assert.Equal(t, model.ActorGuest, *out.CancelActor)
	assert.Equal(t, 1, gw.cancelCalls)
	assert.Equal(t, "TX-1", gw.lastRef)
	assert.Equal(t, res.TotalAmount, gw.lastAmount)
}

func TestCancelRefundFailureLeavesRowUntouched(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{cancelErr: errors.New("timeout")}
	m := newManager(store, gw)
	res := confirmed(t, m, store)

	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	assert.ErrorIs(t, err, ErrRefundFailed)

	after, err := m.store.GetByNumber(context.Background(), res.Number)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, after.Status)
	assert.Nil(t, after.CancelledAt)
}

func TestCancelAlreadyCancelledNotDoubleRefunded(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	m := newManager(store, gw)
	res := confirmed(t, m, store)

	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	require.NoError(t, err)
	_, err = m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 1, gw.cancelCalls)
}

func TestCancelUnpaidPendingSkipsGateway(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	m := newManager(store, gw)

	out, err := m.Create(context.Background(), createReq())
	require.NoError(t, err)

	res, err := m.Cancel(context.Background(), out.Reservation.Number, model.ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Status)
	assert.Zero(t, gw.cancelCalls)
}

func TestCancelStatusWriteFailureAfterRefund(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	m := newManager(store, gw)
	res := confirmed(t, m, store)

	store.failCancel = true
	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	assert.ErrorIs(t, err, ErrReconcileRequired)
	assert.Equal(t, 1, gw.cancelCalls)
}

func TestRevertRestoresConfirmed(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	require.NoError(t, err)

	out, err := m.Revert(context.Background(), res.Number)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, out.Status)
	assert.Nil(t, out.CancelledAt)
}

func TestRevertRejectedWhenDatesRetaken(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	_, err := m.Cancel(context.Background(), res.Number, model.ActorAdmin)
	require.NoError(t, err)

	// Another guest books the freed dates.
	_, err = m.Create(context.Background(), createReq())
	require.NoError(t, err)

	_, err = m.Revert(context.Background(), res.Number)
	assert.ErrorIs(t, err, repository.ErrDateConflict)

	after, err := store.GetByNumber(context.Background(), res.Number)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, after.Status)
}

func TestRevertRequiresCancelled(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	_, err := m.Revert(context.Background(), res.Number)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDiscardOnlyUnpaidPending(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	ctx := context.Background()

	out, err := m.Create(ctx, createReq())
	require.NoError(t, err)

	require.NoError(t, m.Discard(ctx, out.Reservation.Number))
	_, err = store.GetByNumber(ctx, out.Reservation.Number)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)

	// A confirmed reservation cannot be discarded.
	res := confirmed(t, m, store)
	assert.ErrorIs(t, m.Discard(ctx, res.Number), ErrInvalidStatus)
}

func TestCheckInMarksOnlyConfirmed(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	ctx := context.Background()

	out, err := m.Create(ctx, createReq())
	require.NoError(t, err)
	assert.ErrorIs(t, m.MarkCheckedIn(ctx, out.Reservation.Number), ErrInvalidStatus)

	_, err = m.Confirm(ctx, out.Reservation.Number, "TX-1")
	require.NoError(t, err)
	require.NoError(t, m.MarkCheckedIn(ctx, out.Reservation.Number))
	require.NoError(t, m.MarkCheckedOut(ctx, out.Reservation.Number))

	after, err := store.GetByNumber(ctx, out.Reservation.Number)
	require.NoError(t, err)
	assert.NotNil(t, after.CheckedInAt)
	assert.NotNil(t, after.CheckedOutAt)
}

func TestSetHiddenOrthogonalToStatus(t *testing.T) {
	store := newMemStore()
	m := newManager(store, &fakeGateway{})
	res := confirmed(t, m, store)

	require.NoError(t, m.SetHidden(context.Background(), res.Number, true))
	after, err := store.GetByNumber(context.Background(), res.Number)
	require.NoError(t, err)
	assert.True(t, after.Hidden)
	assert.Equal(t, model.StatusConfirmed, after.Status)
}
