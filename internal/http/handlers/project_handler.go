package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// ProjectHandler обслуживает маршруты проектов.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler создаёт новый хэндлер.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Get обрабатывает GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), projectID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// CanComplete обрабатывает GET /api/projects/:id/can-complete.
// Возвращает вердикт готовности проекта к завершению с причиной отказа.
func (h *ProjectHandler) CanComplete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := h.projects.CanComplete(c.Request.Context(), projectID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, verdict)
}

type projectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus обрабатывает PUT /api/projects/:id/status.
// Повторный запрос с тем же статусом идемпотентен.
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req projectStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.UpdateStatus(c.Request.Context(), projectID, userID, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}
