package database

import (
	"errors"
	"os"

	"github.com/ssolovyev/tetatet/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	d.db = db

	return nil
}

// Migrate прогоняет автомиграцию для всех агрегатов.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Friendship{},
		&models.Conversation{},
		&models.Message{},
	)
}
