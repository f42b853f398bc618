package service

import (
	"errors"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/pkg/hash"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/mesopotato/enrich-justice/pkg/token"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService authenticates the operator account.
type UserService interface {
	Login(username, password string) (accessToken, refreshToken string, err error)
	RefreshToken(refreshToken string) (string, error)
}

type userService struct {
	admin      config.AdminConfig
	jwtManager *token.JWTManager
}

// NewUserService creates a UserService for the configured admin account.
func NewUserService(admin config.AdminConfig, jwtManager *token.JWTManager) UserService {
	return &userService{admin: admin, jwtManager: jwtManager}
}

func (s *userService) Login(username, password string) (string, string, error) {
	// 1. account
	if s.admin.Username == "" || s.admin.PasswordHash == "" || username != s.admin.Username {
		return "", "", ErrInvalidCredentials
	}
	// 2. password
	if !hash.CheckPasswordHash(password, s.admin.PasswordHash) {
		log.Warnf("[UserService] failed login for %s", username)
		return "", "", ErrInvalidCredentials
	}
	// 3. tokens
	accessToken, err := s.jwtManager.GenerateToken(username, token.RoleAdmin)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(username, token.RoleAdmin)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *userService) RefreshToken(refreshToken string) (string, error) {
	return s.jwtManager.Refresh(refreshToken)
}
