package payment

import (
	"errors"
	"io"
	"net/http"

	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Stripe events stay well below this; anything larger cannot be verified.
const maxWebhookBody = 512 << 10

type Handler struct {
	service *Service
	loggerf func(format string, args ...interface{})
}

func NewHandler(service *Service, loggerf func(format string, args ...interface{})) *Handler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Handler{service: service, loggerf: loggerf}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook", h.Webhook)
}

// Webhook godoc
// @Summary      Payment provider webhook
// @Description  Verifies the provider signature and confirms or expires the booking (idempotent per event id)
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Provider signature"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.loggerf("level=error msg=payment webhook body too large limit=%d", tooLarge.Limit)
		response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook body too large")
		return
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable body")
		return
	}

	outcome, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.loggerf("level=error msg=payment webhook failed status=%d err=%v", apperr.HTTPStatus(err), err)
		response.Error(c, apperr.HTTPStatus(err), apperr.Code(err), apperr.Public(err))
		return
	}
	response.Success(c, http.StatusOK, WebhookResponse{Received: true, Outcome: outcome})
}
