package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-image-editor-backend/internal/models"
	"ai-image-editor-backend/internal/services"
)

type ProjectsHandler struct {
	service *services.ProjectService
	logger  *slog.Logger
}

func NewProjectsHandler(service *services.ProjectService, logger *slog.Logger) *ProjectsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectsHandler{
		service: service,
		logger:  logger.With("component", "projects_handler"),
	}
}

// ListProjects godoc
// @Summary     List the caller's projects
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	projects, err := h.service.ListProjects(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]models.ProjectResponse, len(projects))
	for i := range projects {
		out[i] = models.NewProjectResponse(&projects[i])
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: out})
}

// GetProject godoc
// @Summary     Get a project
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Project ID (UUID)"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	project, err := h.service.GetOwnedProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NewProjectResponse(project))
}

// GenerateProject godoc
// @Summary     Generate a paid project
// @Description Runs the generation provider on the stored input of a paid project and completes it.
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Project ID (UUID)"
// @Success     200 {object} models.GenerateResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /projects/{id}/generate [post]
func (h *ProjectsHandler) GenerateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.GenerateForProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		OutputURL: result.OutputURL,
		ProjectID: result.ProjectID.String(),
	})
}

// DeleteProject godoc
// @Summary     Delete a project
// @Description Removes the project's stored images (best effort) and its record.
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Project ID (UUID)"
// @Success     200 {object} models.DeleteProjectResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), projectID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteProjectResponse{Success: true})
}
