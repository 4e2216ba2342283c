package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConnectCode string    `gorm:"uniqueIndex;not null"`
	UserName    string    `gorm:"uniqueIndex;not null"`
	FullName    string    `gorm:"not null"`
	CreatedAt   time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
