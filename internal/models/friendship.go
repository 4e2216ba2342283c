package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipDeclined FriendshipStatus = "declined"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

var ErrSelfFriendship = errors.New("requester and recipient cannot be the same user")

// Friendship — ненаправленная связь между двумя пользователями.
// Пара хранится в каноническом порядке (requester < recipient),
// поэтому уникальный индекс ловит дубликаты независимо от того,
// кто отправил запрос.
type Friendship struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	RequesterID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_friendship_pair"`
	Status      FriendshipStatus `gorm:"not null;default:'accepted'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Связи
	Requester User `gorm:"foreignKey:RequesterID"`
	Recipient User `gorm:"foreignKey:RecipientID"`
}

func (f *Friendship) BeforeSave(tx *gorm.DB) error {
	if f.RequesterID == f.RecipientID {
		return ErrSelfFriendship
	}
	if f.RecipientID.String() < f.RequesterID.String() {
		f.RequesterID, f.RecipientID = f.RecipientID, f.RequesterID
		f.Requester, f.Recipient = f.Recipient, f.Requester
	}
	return nil
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = FriendshipAccepted
	}
	return nil
}

// FriendOf возвращает идентификатор второго участника связи.
func (f *Friendship) FriendOf(userID uuid.UUID) uuid.UUID {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}
