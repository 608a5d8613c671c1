package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/availability"
	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/pricing"
	"github.com/hyeonsu-kim/villa-booking/internal/queue"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
	"github.com/hyeonsu-kim/villa-booking/internal/reservation"
	queue_publisher "github.com/hyeonsu-kim/villa-booking/internal/service"
)

// BookingHandler serves the public guest-facing endpoints: availability
// search, quoting, reservation creation, lookup, the payment callback
// and self-service cancellation.  No authentication is required; guests
// identify a reservation with its number plus the booker email.
type BookingHandler struct {
	Rooms    *repository.RoomRepo
	Resolver *availability.Resolver
	Manager  *reservation.Manager
	Log      *zap.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(rooms *repository.RoomRepo, resolver *availability.Resolver, manager *reservation.Manager, log *zap.Logger) *BookingHandler {
	if rooms == nil || resolver == nil || manager == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Rooms: rooms, Resolver: resolver, Manager: manager, Log: log}
}

// SearchAvailability handles GET /v1/availability.  Query parameters:
// check_in, check_out (YYYY-MM-DD), adults, children and an optional
// zone filter.  It returns every bookable room for the range annotated
// with its price.
func (h *BookingHandler) SearchAvailability(c echo.Context) error {
	in, out, err := parseRange(c.QueryParam("check_in"), c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}
	adults, err := strconv.ParseUint(c.QueryParam("adults"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "adults is required"})
	}
	var children uint64
	if s := c.QueryParam("children"); s != "" {
		if children, err = strconv.ParseUint(s, 10, 32); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "children must be a number"})
		}
	}

	offers, err := h.Resolver.Resolve(c.Request().Context(), availability.Query{
		CheckIn:  in,
		CheckOut: out,
		Adults:   uint32(adults),
		Children: uint32(children),
		Zone:     strings.ToUpper(c.QueryParam("zone")),
	})
	if err != nil {
		if errors.Is(err, availability.ErrAdultRequired) || errors.Is(err, pricing.ErrInvalidRange) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"check_in":  in.Format(dateLayout),
		"check_out": out.Format(dateLayout),
		"offers":    offers,
	})
}

// quoteRequest is the body for POST /v1/quote.
type quoteRequest struct {
	RoomID     string   `json:"room_id"`
	CheckIn    string   `json:"check_in"`
	CheckOut   string   `json:"check_out"`
	Adults     uint32   `json:"adults"`
	Students   uint32   `json:"students"`
	Children   uint32   `json:"children"`
	Infants    uint32   `json:"infants"`
	OptionKeys []string `json:"option_keys"`
}

// Quote handles POST /v1/quote.  It prices a prospective stay without
// reserving anything: per-night room prices, the excess-occupancy
// surcharge with its breakdown, and option fees.  The same code paths
// run again at creation, so the quoted total is the charged total.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req quoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	in, out, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}

	ctx := c.Request().Context()
	room, err := h.Rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}

	options, err := pricing.NormalizeOptions(req.OptionKeys)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}
	optionFee, err := pricing.OptionFee(options)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}
	roomPrice, nights, err := h.Resolver.Price(ctx, room.ID, in, out)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	counts := model.GuestCounts{Adult: req.Adults, Student: req.Students, Child: req.Children, Infant: req.Infants}
	surcharge, allocations := pricing.Surcharge(counts, room.BaseOccupancy)

	return c.JSON(http.StatusOK, echo.Map{
		"room_id":      room.ID,
		"check_in":     in.Format(dateLayout),
		"check_out":    out.Format(dateLayout),
		"nights":       nights,
		"room_price":   roomPrice,
		"surcharge":    surcharge,
		"allocations":  allocations,
		"option_keys":  options,
		"option_fee":   optionFee,
		"total_amount": roomPrice + surcharge + optionFee,
	})
}

// createRequest is the body for POST /v1/reservations.
type createRequest struct {
	RoomID        string       `json:"room_id"`
	CheckIn       string       `json:"check_in"`
	CheckOut      string       `json:"check_out"`
	Booker        contactJSON  `json:"booker"`
	Guest         *contactJSON `json:"guest"`
	Adults        uint32       `json:"adults"`
	Students      uint32       `json:"students"`
	Children      uint32       `json:"children"`
	Infants       uint32       `json:"infants"`
	OptionKeys    []string     `json:"option_keys"`
	Request       string       `json:"request"`
	TermsAccepted bool         `json:"terms_accepted"`
	Device        string       `json:"device"`
}

// CreateReservation handles POST /v1/reservations.  On success the
// response carries the tentative reservation and the payment redirect
// URL; the reservation stays PENDING until the gateway callback
// arrives.  A lost race on the dates yields 409 date_conflict.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	in, out, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}

	mreq := reservation.CreateRequest{
		RoomID:        req.RoomID,
		CheckIn:       in,
		CheckOut:      out,
		Booker:        model.Contact{Name: req.Booker.Name, Email: req.Booker.Email, Phone: req.Booker.Phone},
		Counts:        model.GuestCounts{Adult: req.Adults, Student: req.Students, Child: req.Children, Infant: req.Infants},
		OptionKeys:    req.OptionKeys,
		Request:       req.Request,
		TermsAccepted: req.TermsAccepted,
		Device:        req.Device,
	}
	if req.Guest != nil {
		mreq.Guest = &model.Contact{Name: req.Guest.Name, Email: req.Guest.Email, Phone: req.Guest.Phone}
	}

	result, err := h.Manager.Create(c.Request().Context(), mreq)
	if err != nil {
		return writeLifecycleError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation":  reservationView(result.Reservation),
		"redirect_url": result.RedirectURL,
	})
}

// GetReservation handles GET /v1/reservations/:no.  The booker email
// must be supplied and match; a wrong email gets the same 404 as an
// unknown number so the endpoint cannot be used to probe for numbers.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	res, ok, err := h.lookup(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	return c.JSON(http.StatusOK, reservationView(res))
}

func (h *BookingHandler) lookup(c echo.Context) (*model.Reservation, bool, error) {
	email := c.QueryParam("email")
	if email == "" {
		return nil, false, nil
	}
	res, err := h.Manager.Lookup(c.Request().Context(), c.Param("no"))
	if errors.Is(err, repository.ErrReservationNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !strings.EqualFold(res.Booker.Email, email) {
		return nil, false, nil
	}
	return res, true, nil
}

// paymentCallbackRequest is the body the gateway posts after the guest
// completes (or abandons) the payment flow.
type paymentCallbackRequest struct {
	ReservationNo string `json:"reservation_no"`
	TransactionID string `json:"transaction_id"`
	Result        string `json:"result"`
}

// PaymentCallback handles POST /v1/payments/callback.  A successful
// result confirms the PENDING reservation; the handler is idempotent
// because Confirm is.  A failed result discards the abandoned tentative
// row so the dates free up immediately.
func (h *BookingHandler) PaymentCallback(c echo.Context) error {
	var req paymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	if req.ReservationNo == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "reservation_no is required"})
	}
	ctx := c.Request().Context()

	if !strings.EqualFold(req.Result, "OK") {
		if err := h.Manager.Discard(ctx, req.ReservationNo); err != nil {
			return writeLifecycleError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "discarded"})
	}

	if req.TransactionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "transaction_id is required"})
	}
	res, err := h.Manager.Confirm(ctx, req.ReservationNo, req.TransactionID)
	if err != nil {
		return writeLifecycleError(c, err)
	}

	roomName := res.RoomID
	if room, rerr := h.Rooms.GetByID(ctx, res.RoomID); rerr == nil {
		roomName = room.Name
	}
	// Best effort; a broker outage must not fail a paid reservation.
	_ = queue_publisher.PublishReservationConfirmed(ctx, h.Log, queue.ReservationConfirmedEvent{
		ReservationNo: res.Number,
		RoomID:        res.RoomID,
		RoomName:      roomName,
		CheckIn:       res.CheckIn.Format(dateLayout),
		CheckOut:      res.CheckOut.Format(dateLayout),
		Nights:        res.Nights,
		GuestName:     res.Booker.Name,
		TotalAmount:   res.TotalAmount,
		PaymentRef:    req.TransactionID,
		ConfirmedAt:   nowStamp(),
	})

	return c.JSON(http.StatusOK, reservationView(res))
}

// selfCancelRequest is the body for POST /v1/reservations/:no/cancel.
type selfCancelRequest struct {
	Email string `json:"email"`
}

// SelfCancel handles guest-initiated cancellation.  The refund happens
// before the state transition; a refund the gateway does not confirm
// leaves the reservation untouched and returns 502 refund_failed.
func (h *BookingHandler) SelfCancel(c echo.Context) error {
	var req selfCancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	ctx := c.Request().Context()

	existing, err := h.Manager.Lookup(ctx, c.Param("no"))
	if errors.Is(err, repository.ErrReservationNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	if req.Email == "" || !strings.EqualFold(existing.Booker.Email, req.Email) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}

	res, err := h.Manager.Cancel(ctx, existing.Number, model.ActorGuest)
	if err != nil {
		return writeLifecycleError(c, err)
	}
	publishCancelled(ctx, h.Log, res)
	return c.JSON(http.StatusOK, reservationView(res))
}
