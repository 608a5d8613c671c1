package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
	"github.com/hyeonsu-kim/villa-booking/internal/reservation"
)

// AdminReservationHandler serves the back-office reservation screens.
// All routes sit behind JWT authentication with the ADMIN role.
type AdminReservationHandler struct {
	Reservations *repository.ReservationRepo
	Manager      *reservation.Manager
	Log          *zap.Logger
}

// NewAdminReservationHandler constructs an AdminReservationHandler.
func NewAdminReservationHandler(reservations *repository.ReservationRepo, manager *reservation.Manager, log *zap.Logger) *AdminReservationHandler {
	if reservations == nil || manager == nil {
		panic("nil dependency passed to NewAdminReservationHandler")
	}
	return &AdminReservationHandler{Reservations: reservations, Manager: manager, Log: log}
}

// List handles GET /v1/admin/reservations.  Optional query filters:
// status, room_id, from, to (stay-range overlap) and include_hidden.
func (h *AdminReservationHandler) List(c echo.Context) error {
	f := repository.ListFilter{
		Status:        c.QueryParam("status"),
		RoomID:        c.QueryParam("room_id"),
		IncludeHidden: c.QueryParam("include_hidden") == "true",
	}
	if s := c.QueryParam("from"); s != "" {
		from, err := parseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "from must be YYYY-MM-DD"})
		}
		f.From = from
	}
	if s := c.QueryParam("to"); s != "" {
		to, err := parseDate(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "to must be YYYY-MM-DD"})
		}
		f.To = to
	}

	rows, err := h.Reservations.List(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	out := make([]reservationJSON, 0, len(rows))
	for i := range rows {
		out = append(out, reservationView(&rows[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Get handles GET /v1/admin/reservations/:no.
func (h *AdminReservationHandler) Get(c echo.Context) error {
	res, err := h.Manager.Lookup(c.Request().Context(), c.Param("no"))
	if errors.Is(err, repository.ErrReservationNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.JSON(http.StatusOK, reservationView(res))
}

// Cancel handles POST /v1/admin/reservations/:no/cancel.  Same
// refund-first rules as the guest flow, recorded with the ADMIN actor.
func (h *AdminReservationHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.Manager.Cancel(ctx, c.Param("no"), model.ActorAdmin)
	if err != nil {
		return writeLifecycleError(c, err)
	}
	publishCancelled(ctx, h.Log, res)
	return c.JSON(http.StatusOK, reservationView(res))
}

// Revert handles POST /v1/admin/reservations/:no/revert: the
// CANCELLED to CONFIRMED restore.  409 date_conflict when any night
// was re-booked in the meantime.
func (h *AdminReservationHandler) Revert(c echo.Context) error {
	res, err := h.Manager.Revert(c.Request().Context(), c.Param("no"))
	if err != nil {
		return writeLifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, reservationView(res))
}

// Discard handles POST /v1/admin/reservations/:no/discard.  Only
// unpaid PENDING rows qualify; anything else is 409 invalid_status.
func (h *AdminReservationHandler) Discard(c echo.Context) error {
	if err := h.Manager.Discard(c.Request().Context(), c.Param("no")); err != nil {
		return writeLifecycleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckIn handles POST /v1/admin/reservations/:no/check-in.
func (h *AdminReservationHandler) CheckIn(c echo.Context) error {
	if err := h.Manager.MarkCheckedIn(c.Request().Context(), c.Param("no")); err != nil {
		return writeLifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"checked_in_at": time.Now().UTC()})
}

// CheckOut handles POST /v1/admin/reservations/:no/check-out.
func (h *AdminReservationHandler) CheckOut(c echo.Context) error {
	if err := h.Manager.MarkCheckedOut(c.Request().Context(), c.Param("no")); err != nil {
		return writeLifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"checked_out_at": time.Now().UTC()})
}

// SetVisibility handles PATCH /v1/admin/reservations/:no/visibility with
// body {"hidden": bool}.  Hiding never touches the lifecycle status.
func (h *AdminReservationHandler) SetVisibility(c echo.Context) error {
	var body struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	if err := h.Manager.SetHidden(c.Request().Context(), c.Param("no"), body.Hidden); err != nil {
		return writeLifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hidden": body.Hidden})
}
