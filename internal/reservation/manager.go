// Package reservation owns the lifecycle of a reservation record:
// creation with the commit-time overlap re-check, payment hand-off,
// confirmation from the payment callback, cancellation with its
// refund-first guarantee, the administrative revert and the discard of
// abandoned payment flows.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/payment"
	"github.com/hyeonsu-kim/villa-booking/internal/pricing"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
)

// ErrInvalidStatus is returned when an operation is not legal for the
// reservation's current lifecycle status.
var ErrInvalidStatus = errors.New("operation not allowed in current reservation status")

// ErrAlreadyCancelled is returned when cancelling a reservation that is
// already cancelled; rejecting it is what prevents a double refund.
var ErrAlreadyCancelled = errors.New("reservation is already cancelled")

// ErrRefundFailed is returned when the payment gateway did not confirm
// the refund.  The reservation is left untouched; the caller should
// retry or escalate, never treat the cancellation as done.
var ErrRefundFailed = errors.New("refund was not confirmed by the payment gateway")

// ErrReconcileRequired is returned when the gateway confirmed the
// refund but the subsequent status write failed.  The money side is
// settled and must not be retried blindly; the reservation needs manual
// reconciliation.
var ErrReconcileRequired = errors.New("refund succeeded but status update failed; manual reconciliation required")

// ErrPaymentInitFailed is returned when the payment-initiation call
// failed after the tentative row was created; the row is discarded and
// the guest should retry the booking.
var ErrPaymentInitFailed = errors.New("payment initiation failed")

// ValidationError reports a request the guest can correct locally.  It
// is always raised before any store mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Store is the persistence surface the manager drives.  Create must
// perform the overlap re-check and the insert atomically and return
// repository.ErrDateConflict on a lost race.
type Store interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByNumber(ctx context.Context, number string) (*model.Reservation, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Confirm(ctx context.Context, id uint64, paymentRef string) error
	Cancel(ctx context.Context, id uint64, actor string, at time.Time) error
	Revert(ctx context.Context, res *model.Reservation) error
	Delete(ctx context.Context, id uint64) error
	SetCheckedIn(ctx context.Context, id uint64, at time.Time) error
	SetCheckedOut(ctx context.Context, id uint64, at time.Time) error
	SetHidden(ctx context.Context, id uint64, hidden bool) error
}

// RoomSource resolves room codes.
type RoomSource interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
}

// Pricer computes the room price for a range; satisfied by the
// availability resolver so the quote shown in search and the amount
// charged at creation come from the same code path.
type Pricer interface {
	Price(ctx context.Context, roomID string, checkIn, checkOut time.Time) (int64, []pricing.Night, error)
}

// Gateway is the payment processor surface the lifecycle depends on.
type Gateway interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error)
	Cancel(ctx context.Context, transactionID string, amount int64, reason string) error
}

// Manager drives reservation state transitions.
type Manager struct {
	store   Store
	rooms   RoomSource
	pricer  Pricer
	gateway Gateway
	log     *zap.Logger
	now     func() time.Time
}

// NewManager wires a lifecycle manager.
func NewManager(store Store, rooms RoomSource, pricer Pricer, gateway Gateway, log *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		rooms:   rooms,
		pricer:  pricer,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

// CreateRequest is a booking attempt from the public surface.
type CreateRequest struct {
	RoomID        string
	CheckIn       time.Time
	CheckOut      time.Time
	Booker        model.Contact
	Guest         *model.Contact
	Counts        model.GuestCounts
	OptionKeys    []string
	Request       string
	TermsAccepted bool
	// Device hints the gateway toward a mobile or desktop flow.
	Device string
}

// CreateResult is returned on a successful creation: the persisted
// tentative reservation plus the gateway URL the guest is redirected to.
type CreateResult struct {
	Reservation *model.Reservation
	RedirectURL string
}

// Create validates the request, prices the stay, persists a PENDING
// reservation under the commit-time overlap re-check and hands off to
// the payment gateway.  On repository.ErrDateConflict the caller must
// send the guest back to search.  If payment initiation fails the
// tentative row is discarded again (no money moved, no audit
// obligation) and ErrPaymentInitFailed is returned.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := m.validate(req); err != nil {
		return nil, err
	}
	room, err := m.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if req.Counts.Total() > room.MaxOccupancy {
		return nil, invalid("party of %d exceeds room capacity of %d", req.Counts.Total(), room.MaxOccupancy)
	}

	options, err := pricing.NormalizeOptions(req.OptionKeys)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	optionFee, err := pricing.OptionFee(options)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	roomPrice, _, err := m.pricer.Price(ctx, room.ID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	surcharge, _ := pricing.Surcharge(req.Counts, room.BaseOccupancy)

	res := &model.Reservation{
		RoomID:      room.ID,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Nights:      pricing.NightsBetween(req.CheckIn, req.CheckOut),
		Booker:      req.Booker,
		Guest:       req.Guest,
		Counts:      req.Counts,
		OptionKeys:  options,
		Request:     req.Request,
		RoomPrice:   roomPrice,
		Surcharge:   surcharge,
		OptionFee:   optionFee,
		TotalAmount: roomPrice + surcharge + optionFee,
		Status:      model.StatusPending,
	}
	// A lost race on the reservation-number index gets a fresh number
	// and another attempt; a date conflict is final and sends the guest
	// back to search.
	err = repository.ErrNumberTaken
	for i := 0; i < numberAttempts && errors.Is(err, repository.ErrNumberTaken); i++ {
		res.Number, err = m.nextNumber(ctx)
		if err != nil {
			return nil, err
		}
		err = m.store.Create(ctx, res)
	}
	if err != nil {
		return nil, err
	}
	m.log.Info("reservation created",
		zap.String("number", res.Number),
		zap.String("room_id", res.RoomID),
		zap.Int64("total_amount", res.TotalAmount))

	init, err := m.gateway.Initiate(ctx, payment.InitiateRequest{
		ReservationNo: res.Number,
		Amount:        res.TotalAmount,
		BuyerName:     res.Booker.Name,
		BuyerPhone:    res.Booker.Phone,
		BuyerEmail:    res.Booker.Email,
		RoomName:      room.Name,
		CheckIn:       res.CheckIn.Format("2006-01-02"),
		CheckOut:      res.CheckOut.Format("2006-01-02"),
		Device:        req.Device,
	})
	if err != nil {
		// The tentative row never got a payment reference; drop it so
		// the dates are freed immediately.
		if delErr := m.store.Delete(ctx, res.ID); delErr != nil {
			m.log.Error("failed to discard reservation after payment init failure",
				zap.String("number", res.Number), zap.Error(delErr))
		}
		m.log.Warn("payment initiation failed",
			zap.String("number", res.Number), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}
	return &CreateResult{Reservation: res, RedirectURL: init.RedirectURL}, nil
}

func (m *Manager) validate(req CreateRequest) error {
	if !req.TermsAccepted {
		return invalid("terms must be accepted")
	}
	if !req.CheckOut.After(req.CheckIn) {
		return invalid("check-out must be after check-in")
	}
	if req.Booker.Name == "" || req.Booker.Email == "" || req.Booker.Phone == "" {
		return invalid("booker name, email and phone are required")
	}
	if req.Guest != nil && (req.Guest.Name == "" || req.Guest.Phone == "") {
		return invalid("guest name and phone are required when a distinct guest is given")
	}
	if req.Counts.Adult < 1 {
		return invalid("at least one adult is required")
	}
	return nil
}

// Lookup fetches a reservation by its number.
func (m *Manager) Lookup(ctx context.Context, number string) (*model.Reservation, error) {
	return m.store.GetByNumber(ctx, number)
}

// Confirm transitions a PENDING reservation to CONFIRMED upon a
// verified payment callback.  It is idempotent: confirming an
// already-confirmed reservation is a no-op so out-of-order or repeated
// callbacks are safe.  Confirming a cancelled reservation is rejected:
// a late callback must never resurrect a cancelled booking.
func (m *Manager) Confirm(ctx context.Context, number, paymentRef string) (*model.Reservation, error) {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case model.StatusConfirmed:
		return res, nil
	case model.StatusCancelled:
		return nil, ErrInvalidStatus
	}
	if err := m.store.Confirm(ctx, res.ID, paymentRef); err != nil {
		// The status guard matched nothing: the row changed between our
		// read and the write.  Re-read before answering; a concurrent
		// confirm is still an idempotent success, a concurrent
		// cancellation must never be reported as confirmed.
		if errors.Is(err, repository.ErrStaleStatus) {
			res, err = m.store.GetByNumber(ctx, number)
			if err != nil {
				return nil, err
			}
			if res.Status == model.StatusConfirmed {
				return res, nil
			}
			return nil, ErrInvalidStatus
		}
		return nil, err
	}
	res.Status = model.StatusConfirmed
	res.PaymentRef = &paymentRef
	m.log.Info("reservation confirmed",
		zap.String("number", res.Number), zap.String("payment_ref", paymentRef))
	return res, nil
}

// Cancel performs the two-phase cancellation: refund first, state
// transition second.  When a payment reference exists the gateway must
// explicitly confirm the refund before anything is written; a gateway
// failure or timeout returns ErrRefundFailed with the row unchanged.
// When no payment was ever captured the transition happens directly.
func (m *Manager) Cancel(ctx context.Context, number, actor string) (*model.Reservation, error) {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if res.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if res.PaymentRef != nil {
		if err := m.gateway.Cancel(ctx, *res.PaymentRef, res.TotalAmount, "reservation cancellation"); err != nil {
			m.log.Warn("refund not confirmed, cancellation aborted",
				zap.String("number", res.Number), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
		}
	}
	at := m.now().UTC()
	if err := m.store.Cancel(ctx, res.ID, actor, at); err != nil {
		if res.PaymentRef != nil {
			// Money is already refunded; surfacing with the gateway
			// reference is all we can safely do here.
			m.log.Error("status write failed after successful refund",
				zap.String("number", res.Number),
				zap.String("payment_ref", *res.PaymentRef),
				zap.Error(err))
			return nil, fmt.Errorf("%w: reservation %s, refund ref %s", ErrReconcileRequired, res.Number, *res.PaymentRef)
		}
		return nil, err
	}
	res.Status = model.StatusCancelled
	res.CancelActor = &actor
	res.CancelledAt = &at
	m.log.Info("reservation cancelled",
		zap.String("number", res.Number), zap.String("actor", actor))
	return res, nil
}

// Revert is the administrative CANCELLED → CONFIRMED transition.  It
// re-claims the night rows; if any night was taken in the meantime the
// store rejects the revert with a date conflict and the reservation
// stays cancelled.  No re-charge is implied.
func (m *Manager) Revert(ctx context.Context, number string) (*model.Reservation, error) {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if res.Status != model.StatusCancelled {
		return nil, ErrInvalidStatus
	}
	if err := m.store.Revert(ctx, res); err != nil {
		return nil, err
	}
	res.Status = model.StatusConfirmed
	res.CancelActor = nil
	res.CancelledAt = nil
	m.log.Info("reservation reverted to confirmed", zap.String("number", res.Number))
	return res, nil
}

// Discard permanently removes a PENDING reservation whose payment flow
// was abandoned.  Only rows without a payment reference qualify: no
// money ever moved, so there is no audit obligation.
func (m *Manager) Discard(ctx context.Context, number string) error {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if res.Status != model.StatusPending || res.PaymentRef != nil {
		return ErrInvalidStatus
	}
	if err := m.store.Delete(ctx, res.ID); err != nil {
		return err
	}
	m.log.Info("abandoned reservation discarded", zap.String("number", res.Number))
	return nil
}

// MarkCheckedIn stamps the check-in marker; legal only while CONFIRMED.
func (m *Manager) MarkCheckedIn(ctx context.Context, number string) error {
	return m.mark(ctx, number, m.store.SetCheckedIn)
}

// MarkCheckedOut stamps the check-out marker; legal only while CONFIRMED.
func (m *Manager) MarkCheckedOut(ctx context.Context, number string) error {
	return m.mark(ctx, number, m.store.SetCheckedOut)
}

func (m *Manager) mark(ctx context.Context, number string, set func(context.Context, uint64, time.Time) error) error {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if res.Status != model.StatusConfirmed {
		return ErrInvalidStatus
	}
	return set(ctx, res.ID, m.now().UTC())
}

// SetHidden toggles the admin soft-delete flag.  It is orthogonal to
// the lifecycle and legal in any status.
func (m *Manager) SetHidden(ctx context.Context, number string, hidden bool) error {
	res, err := m.store.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	return m.store.SetHidden(ctx, res.ID, hidden)
}
