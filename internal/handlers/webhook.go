package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/services"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBytes       = 1 << 20
)

type WebhookHandler struct {
	service *services.ProjectService
	logger  *slog.Logger
}

func NewWebhookHandler(service *services.ProjectService, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		service: service,
		logger:  logger.With("component", "webhook_handler"),
	}
}

// HandleStripeWebhook godoc
// @Summary     Stripe webhook endpoint
// @Description Verifies the Stripe-Signature header against the raw body and records completed checkouts.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Stripe signature"
// @Success     200 {object} models.WebhookResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// The signature covers the exact bytes, so the body is read raw.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader(stripeSignatureHeader)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.WebhookResponse{Received: true})
}
