package user

import (
	"errors"
	"log"

	"coinbank/internal/models"
	"coinbank/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput carries the fields needed to register a user.
type CreateUserInput struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Document  string          `json:"document"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	UserType  models.UserType `json:"user_type"`
}

type Service interface {
	GetByID(id uint) (*models.User, error)
	Create(input *CreateUserInput) (*models.User, error)
	List(offset, limit int) ([]*models.User, int64, error)
}

type service struct {
	repo    repositories.UserRepository
	wallets repositories.WalletRepository
}

func NewService(repo repositories.UserRepository, wallets repositories.WalletRepository) Service {
	if repo == nil {
		panic("user repository is required")
	}
	if wallets == nil {
		panic("wallet repository is required")
	}

	return &service{
		repo:    repo,
		wallets: wallets,
	}
}

func (s *service) GetByID(id uint) (*models.User, error) {
	return s.repo.GetByID(id)
}

// Create registers a user and opens their zero-balance wallet.
func (s *service) Create(input *CreateUserInput) (*models.User, error) {
	if input.Email == "" || input.Document == "" {
		return nil, errors.New("email and document are required")
	}
	if input.UserType == "" {
		input.UserType = models.UserTypeCommon
	}
	if input.UserType != models.UserTypeCommon && input.UserType != models.UserTypeMerchant {
		return nil, errors.New("unknown user type")
	}

	if existing, _ := s.repo.GetByEmail(input.Email); existing != nil {
		return nil, repositories.ErrEmailTaken
	}
	if existing, _ := s.repo.GetByDocument(input.Document); existing != nil {
		return nil, repositories.ErrDocumentTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Document:  input.Document,
		Email:     input.Email,
		Password:  string(hashedPassword),
		UserType:  input.UserType,
	}

	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	if err := s.wallets.Create(&models.Wallet{UserID: user.ID}); err != nil {
		return nil, err
	}

	log.Printf("user %d created with wallet", user.ID)
	return user, nil
}

func (s *service) List(offset, limit int) ([]*models.User, int64, error) {
	return s.repo.List(offset, limit)
}
