package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyeonsu-kim/villa-booking/internal/repository"
	"github.com/hyeonsu-kim/villa-booking/internal/reservation"
)

func testContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestParseRange(t *testing.T) {
	in, out, err := parseRange("2025-03-06", "2025-03-08")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-06", in.Format(dateLayout))
	assert.Equal(t, "2025-03-08", out.Format(dateLayout))

	_, _, err = parseRange("2025-03-06", "2025-03-06")
	assert.Error(t, err, "zero-night range must be rejected")

	_, _, err = parseRange("2025-03-08", "2025-03-06")
	assert.Error(t, err)

	_, _, err = parseRange("06/03/2025", "2025-03-08")
	assert.Error(t, err)
}

func TestWriteLifecycleErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&reservation.ValidationError{Msg: "bad"}, http.StatusBadRequest, "validation"},
		{repository.ErrDateConflict, http.StatusConflict, "date_conflict"},
		{repository.ErrReservationNotFound, http.StatusNotFound, "not_found"},
		{repository.ErrRoomNotFound, http.StatusNotFound, "not_found"},
		{reservation.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{reservation.ErrInvalidStatus, http.StatusConflict, "invalid_status"},
		{reservation.ErrRefundFailed, http.StatusBadGateway, "refund_failed"},
		{reservation.ErrReconcileRequired, http.StatusInternalServerError, "reconcile_required"},
		{reservation.ErrPaymentInitFailed, http.StatusBadGateway, "payment_init_failed"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		c, rec := testContext()
		require.NoError(t, writeLifecycleError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, "status for %v", tc.err)
		assert.Contains(t, rec.Body.String(), tc.code, "body for %v", tc.err)
	}
}

func TestWriteLifecycleErrorWrappedError(t *testing.T) {
	// Manager errors arrive wrapped with context; mapping must still hit.
	c, rec := testContext()
	err := fmt.Errorf("%w: gateway said no", reservation.ErrRefundFailed)
	require.NoError(t, writeLifecycleError(c, err))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
