// Package handler contains the Echo HTTP handlers for the public
// booking surface and the admin back office.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/queue"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
	"github.com/hyeonsu-kim/villa-booking/internal/reservation"
	queue_publisher "github.com/hyeonsu-kim/villa-booking/internal/service"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD and normalizes to midnight UTC.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// parseRange parses and validates a [check_in, check_out) pair.
func parseRange(inStr, outStr string) (time.Time, time.Time, error) {
	in, err := parseDate(inStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_in must be YYYY-MM-DD")
	}
	out, err := parseDate(outStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_out must be YYYY-MM-DD")
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, errors.New("check_out must be after check_in")
	}
	return in, out, nil
}

// contactJSON mirrors model.Contact on the wire.
type contactJSON struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// reservationJSON is the wire shape of a reservation shared by the
// public and admin endpoints.
type reservationJSON struct {
	Number       string       `json:"reservation_no"`
	RoomID       string       `json:"room_id"`
	CheckIn      string       `json:"check_in"`
	CheckOut     string       `json:"check_out"`
	Nights       uint32       `json:"nights"`
	Booker       contactJSON  `json:"booker"`
	Guest        *contactJSON `json:"guest,omitempty"`
	Adults       uint32       `json:"adults"`
	Students     uint32       `json:"students"`
	Children     uint32       `json:"children"`
	Infants      uint32       `json:"infants"`
	OptionKeys   []string     `json:"option_keys"`
	Request      string       `json:"request,omitempty"`
	RoomPrice    int64        `json:"room_price"`
	Surcharge    int64        `json:"surcharge"`
	OptionFee    int64        `json:"option_fee"`
	TotalAmount  int64        `json:"total_amount"`
	Status       string       `json:"status"`
	Hidden       bool         `json:"hidden,omitempty"`
	PaymentRef   *string      `json:"payment_ref,omitempty"`
	CancelActor  *string      `json:"cancel_actor,omitempty"`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time   `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func reservationView(res *model.Reservation) reservationJSON {
	v := reservationJSON{
		Number:       res.Number,
		RoomID:       res.RoomID,
		CheckIn:      res.CheckIn.Format(dateLayout),
		CheckOut:     res.CheckOut.Format(dateLayout),
		Nights:       res.Nights,
		Booker:       contactJSON{Name: res.Booker.Name, Email: res.Booker.Email, Phone: res.Booker.Phone},
		Adults:       res.Counts.Adult,
		Students:     res.Counts.Student,
		Children:     res.Counts.Child,
		Infants:      res.Counts.Infant,
		OptionKeys:   res.OptionKeys,
		Request:      res.Request,
		RoomPrice:    res.RoomPrice,
		Surcharge:    res.Surcharge,
		OptionFee:    res.OptionFee,
		TotalAmount:  res.TotalAmount,
		Status:       res.Status,
		Hidden:       res.Hidden,
		PaymentRef:   res.PaymentRef,
		CancelActor:  res.CancelActor,
		CancelledAt:  res.CancelledAt,
		CheckedInAt:  res.CheckedInAt,
		CheckedOutAt: res.CheckedOutAt,
		CreatedAt:    res.CreatedAt,
	}
	if res.Guest != nil {
		v.Guest = &contactJSON{Name: res.Guest.Name, Email: res.Guest.Email, Phone: res.Guest.Phone}
	}
	return v
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// publishCancelled emits the cancellation event.  Best effort: the
// publisher logs failures and the booking flow carries on.
func publishCancelled(ctx context.Context, log *zap.Logger, res *model.Reservation) {
	ev := queue.ReservationCancelledEvent{
		ReservationNo: res.Number,
		RoomID:        res.RoomID,
		CancelledAt:   nowStamp(),
	}
	if res.CancelActor != nil {
		ev.Actor = *res.CancelActor
	}
	if res.PaymentRef != nil {
		ev.RefundAmount = res.TotalAmount
		ev.PaymentRef = *res.PaymentRef
	}
	_ = queue_publisher.PublishReservationCancelled(ctx, log, ev)
}

// writeLifecycleError maps manager and repository errors onto the API
// error vocabulary.  Unrecognized errors become an opaque 500.
func writeLifecycleError(c echo.Context, err error) error {
	var verr *reservation.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": verr.Msg})
	case errors.Is(err, repository.ErrDateConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "date_conflict", "message": "the requested dates are no longer available"})
	case errors.Is(err, repository.ErrReservationNotFound), errors.Is(err, repository.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, reservation.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_cancelled"})
	case errors.Is(err, reservation.ErrInvalidStatus):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_status"})
	case errors.Is(err, reservation.ErrRefundFailed):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "refund_failed", "message": "refund was not confirmed; the reservation is unchanged"})
	case errors.Is(err, reservation.ErrReconcileRequired):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile_required", "message": err.Error()})
	case errors.Is(err, reservation.ErrPaymentInitFailed):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment_init_failed", "message": "payment could not be initiated; please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
}
