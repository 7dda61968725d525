package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/services"
)

const msgProjectIDRequired = "projectId is required."

type CheckoutHandler struct {
	service *services.ProjectService
	logger  *slog.Logger
}

func NewCheckoutHandler(service *services.ProjectService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		service: service,
		logger:  logger.With("component", "checkout_handler"),
	}
}

// CreateCheckoutSession godoc
// @Summary     Start payment for a project
// @Tags        payments
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateCheckoutSessionRequest true "Project to pay for"
// @Success     200 {object} models.CheckoutSessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /create-checkout-session [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgProjectIDRequired})
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: services.MsgCheckoutNotFound})
		return
	}

	cs, err := h.service.CreateCheckoutSession(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CheckoutSessionResponse{SessionID: cs.ID, URL: cs.URL})
}
