package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/goroutine"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами.
// Жизненный цикл явный: Run крутится до отмены контекста,
// после чего все соединения закрываются.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба. Блокируется до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUser отправляет сообщение конкретному пользователю.
// Поле "type" содержит имя события, "data" — полезную нагрузку.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	payload := map[string]any{
		"type": event,
		"data": data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
	case <-h.done:
	}
	return nil
}

// ConnectedUsers возвращает количество пользователей с активными соединениями.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Медленного клиента отключаем, чтобы не копить бэклог.
			logger.Log.Warnf("ws: переполнен буфер отправки пользователя %s, закрываем соединение", userID)
			goroutine.SafeGo(client.Close)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0)
	for _, set := range h.clients {
		for client := range set {
			clients = append(clients, client)
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}
}
