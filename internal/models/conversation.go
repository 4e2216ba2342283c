package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSelfConversation = errors.New("conversation requires two distinct participants")

// MessagePreview — денормализованный снимок последнего сообщения.
type MessagePreview struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation — единственный канал переписки между двумя участниками.
// Участники хранятся отсортированными, уникальный индекс на паре
// гарантирует не больше одной беседы на пару.
type Conversation struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ParticipantA uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair"`
	ParticipantB uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair"`
	UnreadCounts map[string]int `gorm:"serializer:json"`
	LastContent  *string
	LastSentAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Conversation) BeforeSave(tx *gorm.DB) error {
	if c.ParticipantA == c.ParticipantB {
		return ErrSelfConversation
	}
	if c.ParticipantB.String() < c.ParticipantA.String() {
		c.ParticipantA, c.ParticipantB = c.ParticipantB, c.ParticipantA
	}
	return nil
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = map[string]int{
			c.ParticipantA.String(): 0,
			c.ParticipantB.String(): 0,
		}
	}
	return nil
}

// OtherParticipant возвращает второго участника беседы.
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// UnreadFor возвращает счётчик непрочитанного для участника.
func (c *Conversation) UnreadFor(userID uuid.UUID) int {
	return c.UnreadCounts[userID.String()]
}

// Preview возвращает снимок последнего сообщения или nil,
// если сообщений ещё не было.
func (c *Conversation) Preview() *MessagePreview {
	if c.LastContent == nil || c.LastSentAt == nil {
		return nil
	}
	return &MessagePreview{Content: *c.LastContent, Timestamp: *c.LastSentAt}
}
