package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/ssolovyev/tetatet/internal/models"
	"gorm.io/gorm"
)

func (d *Database) GetConversation(id string) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := d.db.First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindConversationBetween ищет беседу пары. Пара хранится в
// каноническом порядке, поэтому достаточно одного сравнения.
func (d *Database) FindConversationBetween(userA, userB uuid.UUID) (*models.Conversation, error) {
	if userB.String() < userA.String() {
		userA, userB = userB, userA
	}

	var conversation models.Conversation
	err := d.db.
		Where("participant_a = ? AND participant_b = ?", userA, userB).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// GetOrCreateConversation возвращает беседу пары, создавая её при
// отсутствии. Проигравший гонку на уникальном индексе перечитывает
// запись победителя.
func (d *Database) GetOrCreateConversation(userA, userB uuid.UUID) (*models.Conversation, error) {
	conversation, err := d.FindConversationBetween(userA, userB)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation = &models.Conversation{
		ParticipantA: userA,
		ParticipantB: userB,
	}
	if err := d.db.Create(conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return d.FindConversationBetween(userA, userB)
		}
		return nil, err
	}

	return conversation, nil
}

// MarkConversationRead обнуляет счётчик непрочитанного для участника.
// Карта счётчиков копируется перед изменением и сохраняется одной
// записью документа, чужой счётчик не трогается.
func (d *Database) MarkConversationRead(conversationID string, userID uuid.UUID) (*models.Conversation, error) {
	conversation, err := d.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	if conversation.ParticipantA != userID && conversation.ParticipantB != userID {
		return nil, ErrNotParticipant
	}

	counts := make(map[string]int, len(conversation.UnreadCounts))
	for k, v := range conversation.UnreadCounts {
		counts[k] = v
	}
	counts[userID.String()] = 0

	if err := d.db.Model(conversation).Update("unread_counts", counts).Error; err != nil {
		return nil, err
	}

	conversation.UnreadCounts = counts
	return conversation, nil
}

// GetUserConversations возвращает все беседы с участием пользователя.
func (d *Database) GetUserConversations(userID uuid.UUID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := d.db.
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}
