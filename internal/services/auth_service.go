package services

import (
	"context"

	"github.com/yukikurage/cms-resource-broker/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles login on top of the broker's credential check.
type AuthService struct {
	broker *ResourceBroker
}

// NewAuthService creates a new AuthService.
func NewAuthService(broker *ResourceBroker) *AuthService {
	return &AuthService{
		broker: broker,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Name     string
	Password string
}

// Login verifies credentials and returns the authenticated user. The check
// runs as the guest user in the online project.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	return s.broker.ReadUserWithPassword(ctx, s.Anonymous(), input.Name, input.Password)
}

// Anonymous returns the caller used for requests without a session.
func (s *AuthService) Anonymous() Caller {
	return Caller{
		User:    s.broker.cfg.GuestUser,
		Project: s.broker.cfg.OnlineProject,
	}
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
