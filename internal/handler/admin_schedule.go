package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hyeonsu-kim/villa-booking/internal/model"
	"github.com/hyeonsu-kim/villa-booking/internal/repository"
)

// AdminScheduleHandler manages the pricing inputs: per-room rate
// schedules, per-date price overrides and administrative date blocks.
type AdminScheduleHandler struct {
	Rooms *repository.RoomRepo
	Rates *repository.RateRepo
	Log   *zap.Logger
}

// NewAdminScheduleHandler constructs an AdminScheduleHandler.
func NewAdminScheduleHandler(rooms *repository.RoomRepo, rates *repository.RateRepo, log *zap.Logger) *AdminScheduleHandler {
	if rooms == nil || rates == nil {
		panic("nil dependency passed to NewAdminScheduleHandler")
	}
	return &AdminScheduleHandler{Rooms: rooms, Rates: rates, Log: log}
}

func (h *AdminScheduleHandler) roomExists(c echo.Context, roomID string) (bool, error) {
	_, err := h.Rooms.GetByID(c.Request().Context(), roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PutRates handles PUT /v1/admin/rooms/:id/rates with the three
// day-class prices.  Upsert: the first call creates the schedule.
func (h *AdminScheduleHandler) PutRates(c echo.Context) error {
	var body struct {
		WeekdayPrice  int64 `json:"weekday_price"`
		FridayPrice   int64 `json:"friday_price"`
		SaturdayPrice int64 `json:"saturday_price"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	if body.WeekdayPrice < 0 || body.FridayPrice < 0 || body.SaturdayPrice < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "prices must not be negative"})
	}
	roomID := c.Param("id")
	if ok, err := h.roomExists(c, roomID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	} else if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}

	s := &model.RateSchedule{
		RoomID:        roomID,
		WeekdayPrice:  body.WeekdayPrice,
		FridayPrice:   body.FridayPrice,
		SaturdayPrice: body.SaturdayPrice,
	}
	if err := h.Rates.UpsertSchedule(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	h.Log.Info("rate schedule updated", zap.String("room_id", roomID))
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":        roomID,
		"weekday_price":  body.WeekdayPrice,
		"friday_price":   body.FridayPrice,
		"saturday_price": body.SaturdayPrice,
	})
}

// SetOverride handles PUT /v1/admin/rooms/:id/overrides/:date.  The
// override wins over the day-class price for that single night.
func (h *AdminScheduleHandler) SetOverride(c echo.Context) error {
	var body struct {
		Price int64 `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	if body.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "price must not be negative"})
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "date must be YYYY-MM-DD"})
	}
	roomID := c.Param("id")
	if ok, err := h.roomExists(c, roomID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	} else if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}

	o := &model.DateOverride{RoomID: roomID, StayDate: date, Price: body.Price}
	if err := h.Rates.SetOverride(c.Request().Context(), o); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":   roomID,
		"stay_date": date.Format(dateLayout),
		"price":     body.Price,
	})
}

// DeleteOverride handles DELETE /v1/admin/rooms/:id/overrides/:date.
func (h *AdminScheduleHandler) DeleteOverride(c echo.Context) error {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "date must be YYYY-MM-DD"})
	}
	if err := h.Rates.DeleteOverride(c.Request().Context(), c.Param("id"), date); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBlocks handles GET /v1/admin/rooms/:id/blocks?from=&to=.
func (h *AdminScheduleHandler) ListBlocks(c echo.Context) error {
	from, to, err := parseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": err.Error()})
	}
	blocks, err := h.Rates.ListBlocks(c.Request().Context(), c.Param("id"), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	out := make([]echo.Map, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, echo.Map{
			"room_id":      b.RoomID,
			"blocked_date": b.BlockedDate.Format(dateLayout),
			"reason":       b.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"blocks": out})
}

// AddBlock handles PUT /v1/admin/rooms/:id/blocks/:date.  A blocked
// night never shows up in availability; existing reservations are not
// affected.
func (h *AdminScheduleHandler) AddBlock(c echo.Context) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "date must be YYYY-MM-DD"})
	}
	roomID := c.Param("id")
	if ok, err := h.roomExists(c, roomID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	} else if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}

	b := &model.DateBlock{RoomID: roomID, BlockedDate: date, Reason: body.Reason}
	if err := h.Rates.AddBlock(c.Request().Context(), b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":      roomID,
		"blocked_date": date.Format(dateLayout),
		"reason":       body.Reason,
	})
}

// RemoveBlock handles DELETE /v1/admin/rooms/:id/blocks/:date.
func (h *AdminScheduleHandler) RemoveBlock(c echo.Context) error {
	date, err := parseDate(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "date must be YYYY-MM-DD"})
	}
	if err := h.Rates.RemoveBlock(c.Request().Context(), c.Param("id"), date); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	return c.NoContent(http.StatusNoContent)
}
