package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/ssolovyev/tetatet/internal/models"
	"gorm.io/gorm"
)

// CreateFriendship создаёт связь для пары. Канонический порядок
// обеспечивает хук модели; нарушение уникального индекса означает,
// что пара уже связана — в том числе при гонке двух одновременных
// запросов.
func (d *Database) CreateFriendship(friendship *models.Friendship) error {
	if err := d.db.Create(friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrFriendshipExists
		}
		return err
	}
	return nil
}

// FindFriendshipBetween ищет связь пары независимо от направления.
func (d *Database) FindFriendshipBetween(userA, userB uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := d.db.
		Where("requester_id = ? AND recipient_id = ?", userA, userB).
		Or("requester_id = ? AND recipient_id = ?", userB, userA).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// GetUserFriendships возвращает все связи пользователя с обеими
// сторонами пары.
func (d *Database) GetUserFriendships(userID uuid.UUID) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := d.db.
		Where("requester_id = ? OR recipient_id = ?", userID, userID).
		Preload("Requester").
		Preload("Recipient").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}
