package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_cursor,priority:1"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Content        string    `gorm:"not null"`
	Read           bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"index:idx_message_cursor,priority:2,sort:desc"`

	// Связи
	Sender       User         `gorm:"foreignKey:SenderID"`
	Conversation Conversation `gorm:"foreignKey:ConversationID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
