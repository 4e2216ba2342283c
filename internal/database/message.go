package database

import (
	"time"

	"github.com/ssolovyev/tetatet/internal/models"
	"gorm.io/gorm"
)

// SaveMessage сохраняет сообщение и в той же транзакции обновляет
// беседу: снимок последнего сообщения и счётчик непрочитанного
// получателя. Благодаря этому превью и счётчики не могут разойтись
// с журналом сообщений.
func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := tx.First(&conversation, "id = ?", message.ConversationID).Error; err != nil {
			return err
		}

		if conversation.ParticipantA != message.SenderID && conversation.ParticipantB != message.SenderID {
			return ErrNotParticipant
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		recipient := conversation.OtherParticipant(message.SenderID)

		counts := make(map[string]int, len(conversation.UnreadCounts))
		for k, v := range conversation.UnreadCounts {
			counts[k] = v
		}
		counts[recipient.String()]++

		return tx.Model(&conversation).Updates(map[string]interface{}{
			"last_content":  message.Content,
			"last_sent_at":  message.CreatedAt,
			"unread_counts": counts,
		}).Error
	})
}

func (d *Database) GetMessage(id string) (*models.Message, error) {
	var message models.Message
	if err := d.db.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetConversationMessages получает сообщения беседы с курсорной
// пагинацией по времени создания, старые первыми.
func (d *Database) GetConversationMessages(conversationID string, limit int, before *time.Time) ([]models.Message, error) {
	query := d.db.Where("conversation_id = ?", conversationID)

	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.Message
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
