package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ключи gin.Context, под которыми middleware кладёт данные пользователя.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// TokenParser проверяет access токен и возвращает идентификатор и роль пользователя.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware требует валидный Bearer-токен и кладёт
// идентификатор и роль пользователя в контекст запроса.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
