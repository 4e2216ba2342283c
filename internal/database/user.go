package database

import (
	"github.com/ssolovyev/tetatet/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return d.db.Create(user).Error
}

func (d *Database) GetUser(id string) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByConnectCode ищет пользователя по его connect-коду.
func (d *Database) FindUserByConnectCode(code string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("connect_code = ?", code).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
