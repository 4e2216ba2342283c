package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ssolovyev/tetatet/internal/middleware"
	ws "github.com/ssolovyev/tetatet/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub           *ws.Hub
	conversations *ConversationHandler
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, conversations *ConversationHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		conversations: conversations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения. Аутентификация
// уже выполнена в middleware: без userID соединение не открывается.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, userID.(uuid.UUID))

	h.hub.Register(client)
	h.conversations.HandleConnect(client)

	go client.WritePump()
	go client.ReadPump(h.conversations)
}
