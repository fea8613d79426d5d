package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно. Ошибки уровня приложения
// переводятся в пару (HTTP статус, код), всё остальное маскируется как
// внутренняя ошибка сервера, чтобы не утекали детали запросов к БД.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
			return
		}

		if message, ok := notFoundMessage(err); ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": message,
				"code":  apperror.ErrCodeNotFound,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "внутренняя ошибка сервера",
			"code":  apperror.ErrCodeServer,
		})
	}
}

// notFoundMessage переводит сентинел-ошибки хранилища в сообщения клиенту.
func notFoundMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrMilestoneNotFound):
		return "этап не найден", true
	case errors.Is(err, repository.ErrProjectNotFound):
		return "проект не найден", true
	case errors.Is(err, repository.ErrPaymentNotFound):
		return "платёж не найден", true
	case errors.Is(err, repository.ErrNotificationNotFound):
		return "уведомление не найдено", true
	case errors.Is(err, repository.ErrUserNotFound):
		return "пользователь не найден", true
	}
	return "", false
}
