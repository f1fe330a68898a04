package booking

import (
	"net/http"
	"strconv"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reservations", h.CreateReservation)
	rg.GET("/reservations/:id", h.GetReservation)
}

func (h *Handler) CreateReservation(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	start, err1 := time.Parse(domain.DateLayout, req.StartDate)
	end, err2 := time.Parse(domain.DateLayout, req.EndDate)
	if err1 != nil || err2 != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Dates must use YYYY-MM-DD")
		return
	}

	res, err := h.service.CreateReservation(c.Request.Context(), CreateReservationInput{
		UserID:       userID,
		HotelID:      req.HotelID,
		RoomNumbers:  req.RoomNumbers,
		Start:        start,
		End:          end,
		DiscountCode: req.DiscountCode,
		RequestID:    c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	response.Success(c, status, ReservationResponse{
		ClientSecret:  res.ClientSecret,
		TransactionID: res.TransactionID,
		Booking:       toSummary(res.Booking),
	})
}

func (h *Handler) GetReservation(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reservation ID")
		return
	}

	b, err := h.service.GetReservation(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toSummary(b))
}

func writeError(c *gin.Context, err error) {
	if !apperr.IsBusiness(err) {
		_ = c.Error(err)
	}
	response.Error(c, apperr.HTTPStatus(err), apperr.Code(err), apperr.Public(err))
}
