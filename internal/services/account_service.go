package services

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/pluvial233/WHU-teamwork/internal/models"
	"github.com/pluvial233/WHU-teamwork/internal/repositories"
)

var (
	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned on any failed login. It deliberately does
	// not distinguish an unknown username from a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// AccountService handles registration and login. Credentials are stored and
// compared as opaque strings.
type AccountService interface {
	Register(username, password string) (*models.User, error)
	Authenticate(username, password string) (*models.User, error)
	GetUser(id uint) (*models.User, error)
}

type accountService struct {
	userRepo repositories.UserRepository
}

func NewAccountService(userRepo repositories.UserRepository) AccountService {
	return &accountService{userRepo: userRepo}
}

// Register creates a new regular-role user. The username must be unused.
func (s *accountService) Register(username, password string) (*models.User, error) {
	_, err := s.userRepo.GetByUsername(nil, username)
	if err == nil {
		log.Printf("[WARN] Register: username %q already taken", username)
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Password: password,
		Role:     models.UserRoleUser,
	}
	if err := s.userRepo.Create(nil, user); err != nil {
		log.Printf("[ERROR] Register: failed to create user %q: %v", username, err)
		return nil, err
	}
	log.Printf("[INFO] Register: user %q created (id=%d)", username, user.ID)
	return user, nil
}

// Authenticate checks the username/password pair by exact equality.
func (s *accountService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(nil, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password != password {
		log.Printf("[WARN] Authenticate: wrong password for user %q", username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *accountService) GetUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
