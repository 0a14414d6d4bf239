package repositories

import (
	"errors"

	"coinbank/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already taken")
	ErrDocumentTaken = errors.New("document already taken")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByDocument(document string) (*models.User, error)
	Update(user *models.User) error
	List(offset, limit int) ([]*models.User, int64, error)
	IncrementTokenVersion(userID uint) error
}
