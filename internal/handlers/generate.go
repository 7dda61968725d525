package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/services"
)

type GenerateHandler struct {
	service        *services.ProjectService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewGenerateHandler(service *services.ProjectService, maxUploadBytes int64, logger *slog.Logger) *GenerateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "generate_handler"),
	}
}

// Generate godoc
// @Summary     Edit an image from a prompt
// @Description Uploads the image, runs the generation provider, stores the result and records a completed project.
// @Tags        generation
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       image  formData file   true "Image to edit"
// @Param       prompt formData string true "Edit instruction"
// @Success     200 {object} models.GenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /generate [post]
func (h *GenerateHandler) Generate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	in, err := readImageForm(c, userID, h.maxUploadBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		OutputURL: result.OutputURL,
		ProjectID: result.ProjectID.String(),
	})
}

// UploadAndCreateProject godoc
// @Summary     Create an unpaid project
// @Description Stores the input image and creates a project awaiting payment. Generation runs once the project is paid.
// @Tags        projects
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       image  formData file   true "Image to edit"
// @Param       prompt formData string true "Edit instruction"
// @Success     200 {object} models.CreateProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /upload-and-create-project [post]
func (h *GenerateHandler) UploadAndCreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	in, err := readImageForm(c, userID, h.maxUploadBytes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	project, err := h.service.CreatePendingProject(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.CreateProjectResponse{ProjectID: project.ID.String()})
}
