package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotelbooking/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

type envelope struct {
	Success bool                `json:"success"`
	Data    ReservationResponse `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func postReservation(t *testing.T, r http.Handler, body any, idemKey string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHandler_CreateReservation(t *testing.T) {
	f := newFixture(t, "101")
	r := newTestRouter(NewHandler(f.service), f.user.ID)
	today := domain.DateOf(time.Now())

	body := CreateReservationRequest{
		HotelID:     f.hotel.ID,
		RoomNumbers: []string{"101"},
		StartDate:   today.AddDate(0, 0, 1).Format(domain.DateLayout),
		EndDate:     today.AddDate(0, 0, 3).Format(domain.DateLayout),
	}

	w, env := postReservation(t, r, body, "req-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "pi_test_1_secret", env.Data.ClientSecret)
	assert.Equal(t, "pending", env.Data.Booking.Status)
	assert.Equal(t, "200.00", env.Data.Booking.DiscountedTotal)
	assert.Equal(t, []string{"101"}, env.Data.Booking.RoomNumbers)
	assert.Equal(t, 2, env.Data.Booking.Nights)

	w, env = postReservation(t, r, body, "req-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_test_1", env.Data.TransactionID)

	w, env = postReservation(t, r, body, "req-2")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "room 101 not available for the selected dates", env.Error.Message)
}

func TestHandler_CreateReservation_BadInput(t *testing.T) {
	f := newFixture(t, "101")
	r := newTestRouter(NewHandler(f.service), f.user.ID)

	w, env := postReservation(t, r, map[string]any{"hotel_id": f.hotel.ID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = postReservation(t, r, CreateReservationRequest{
		HotelID: f.hotel.ID, RoomNumbers: []string{"101"}, StartDate: "01/02/2030", EndDate: "2030-01-05",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = postReservation(t, r, CreateReservationRequest{
		HotelID: f.hotel.ID + 5, RoomNumbers: []string{"101"}, StartDate: "2099-01-02", EndDate: "2099-01-05",
	}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHandler_GetReservation(t *testing.T) {
	f := newFixture(t, "101")
	ctx := t.Context()
	res, err := f.service.CreateReservation(ctx, f.request([]string{"101"}, 1, 3))
	require.NoError(t, err)

	owner := newTestRouter(NewHandler(f.service), f.user.ID)
	w := httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", res.Booking.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), res.TransactionID)

	stranger := newTestRouter(NewHandler(f.service), f.user.ID+1)
	w = httptest.NewRecorder()
	stranger.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", res.Booking.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
