package service

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/utils"
)

// AuthService authenticates console users.
type AuthService struct {
	userRepo *repository.AdminUserRepository
}

func NewAuthService(userRepo *repository.AdminUserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Login verifies credentials and returns a signed JWT.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		log.Warn().Str("email", email).Msg("Login attempt for unknown user")
		return "", utils.ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Warn().Str("email", email).Msg("Login attempt for inactive account")
		return "", utils.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Password verification failed")
		return "", utils.ErrInvalidCredentials
	}

	if err := s.userRepo.TouchLastLogin(user.ID); err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("Failed to record last login")
	}

	log.Info().Str("email", email).Msg("Login successful")
	return utils.GenerateJWT(user.ID, user.Email, user.Role)
}

// CreateAdmin registers a new console user with a hashed password.
func (s *AuthService) CreateAdmin(email, password, name, role string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         role,
		IsActive:     true,
	}
	return s.userRepo.Create(user)
}
