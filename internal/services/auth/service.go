package auth

import (
	"errors"
	"log"

	"coinbank/internal/models"
	"coinbank/internal/repositories"
	"coinbank/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(email, password string) (*models.User, string, error)
	Logout(userID uint) error
}

type service struct {
	userRepo  repositories.UserRepository
	jwtSecret string
}

func NewService(userRepo repositories.UserRepository, jwtSecret string) Service {
	return &service{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

func (s *service) Login(email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Printf("login failed: user not found for %s", email)
		return nil, "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("login failed: incorrect password for user %d", user.ID)
		return nil, "", errors.New("invalid credentials")
	}

	token, err := utils.GenerateToken(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		UserType:     user.UserType,
		TokenVersion: user.TokenVersion,
	}, s.jwtSecret)
	if err != nil {
		log.Printf("error generating token: %v", err)
		return nil, "", errors.New("error generating token")
	}

	return user, token, nil
}

func (s *service) Logout(userID uint) error {
	return s.userRepo.IncrementTokenVersion(userID)
}
