package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ai-image-editor-backend/internal/apperr"
	"ai-image-editor-backend/internal/middleware"
	"ai-image-editor-backend/internal/models"
)

const (
	msgUnauthorized     = "Unauthorized."
	msgUnexpected       = "Unexpected error."
	msgInvalidProjectID = "Invalid project id."
)

// respondError logs a failure once, with its stage and kind, and writes the
// user-facing message. Causes never leave the process.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	message := msgUnexpected
	stage := ""
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		stage = appErr.Stage
		if appErr.Message != "" {
			message = appErr.Message
		}
	}

	attrs := []any{
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", status,
		"kind", string(kind),
		"stage", stage,
		"error", err,
	}
	if userID, ok := middleware.UserID(c); ok {
		attrs = append(attrs, "user_id", userID)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	c.JSON(status, models.ErrorResponse{Error: message})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: msgUnauthorized})
		return uuid.Nil, false
	}
	return userID, true
}

func projectIDParam(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidProjectID})
		return uuid.Nil, false
	}
	return projectID, true
}
