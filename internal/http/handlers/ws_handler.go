package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/service"
	"github.com/ignatzorin/marketplace-backend/internal/ws"
)

// WSHandler апгрейдит HTTP-запрос до WebSocket и привязывает
// соединение к пользователю для доставки уведомлений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   *service.TokenManager
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Источник проверяется CORS-настройками на уровне роутера,
			// сам апгрейд доступен любому аутентифицированному клиенту.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle обслуживает GET /api/ws?token=... Токен передаётся query-параметром,
// потому что браузерный WebSocket API не умеет ставить заголовки.
func (h *WSHandler) Handle(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется access токен"})
		return
	}

	userID, _, err := h.tokens.ParseAccess(raw)
	if err != nil || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам пишет ответ при ошибке рукопожатия.
		logger.Log.Warnf("ws: апгрейд соединения пользователя %s не удался: %v", userID, err)
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register(client)
	client.Run(c.Request.Context())
}
