package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ssolovyev/tetatet/internal/database"
	"github.com/ssolovyev/tetatet/internal/handlers/dto"
	"github.com/ssolovyev/tetatet/internal/middleware"
	"github.com/ssolovyev/tetatet/internal/models"
	"github.com/ssolovyev/tetatet/internal/websocket"
)

type HTTPMessageHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewHTTPMessageHandler(db *database.Database, hub *websocket.Hub) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db, hub: hub}
}

// SendMessage сохраняет сообщение беседы. Снимок последнего
// сообщения и счётчик получателя обновляются в той же транзакции,
// после чего событие уходит в комнату пары.
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	conversationID := c.Param("id")

	var req dto.SendMessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := h.db.GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	if conversation.ParticipantA != userID && conversation.ParticipantB != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a participant of this conversation"})
		return
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       userID,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}

	if err := h.db.SaveMessage(message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	response := dto.MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		Read:           message.Read,
		CreatedAt:      message.CreatedAt,
	}

	room := websocket.ChatRoom(conversation.ParticipantA, conversation.ParticipantB)
	h.hub.Emit(room, websocket.TypeMessageNew, response)

	c.JSON(http.StatusCreated, response)
}
