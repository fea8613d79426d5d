package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/ws"
)

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db  *sqlx.DB
	hub *ws.Hub
}

// NewHealthHandler создаёт новый health handler.
func NewHealthHandler(db *sqlx.DB, hub *ws.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	ConnectedUsers int               `json:"connected_users"`
	Checks         map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		ConnectedUsers: h.hub.ConnectedUsers(),
		Checks:         checks,
	})
}
