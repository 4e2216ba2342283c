package dto

import (
	"time"

	"github.com/google/uuid"
)

// SendMessagePayload — тело запроса на отправку сообщения
type SendMessagePayload struct {
	Content string `json:"content" binding:"required"`
}

// MessageResponse — сохранённое сообщение для рассылки в комнату пары
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}
