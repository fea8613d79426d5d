package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/notify"
)

// NotificationHandler обслуживает маршруты уведомлений.
// Читает и пишет через notification center: ответы мгновенные,
// изменения синхронизируются с БД в фоне.
type NotificationHandler struct {
	center *notify.Center
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(center *notify.Center) *NotificationHandler {
	return &NotificationHandler{center: center}
}

// List обрабатывает GET /api/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	notifications, err := h.center.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Лента уже отсортирована от новых к старым, страницы режем по ней.
	limit, offset := common.GetPagination(c)
	if offset >= len(notifications) {
		c.JSON(http.StatusOK, []models.Notification{})
		return
	}
	if end := offset + limit; end < len(notifications) {
		notifications = notifications[offset:end]
	} else {
		notifications = notifications[offset:]
	}

	c.JSON(http.StatusOK, notifications)
}

// CountUnread обрабатывает GET /api/notifications/unread/count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	count, err := h.center.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkAsRead обрабатывает PATCH /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.center.MarkRead(c.Request.Context(), userID, id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "уведомление отмечено как прочитанное"})
}

// MarkAllAsRead обрабатывает PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if err := h.center.MarkAllRead(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "все уведомления отмечены как прочитанные"})
}

// Delete обрабатывает DELETE /api/notifications/:id.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.center.Delete(c.Request.Context(), userID, id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "уведомление удалено"})
}
