package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
)

// AdminService handles administrator login and logout.
type AdminService struct {
	authService *AuthService
	log         zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(authService *AuthService, log zerolog.Logger) *AdminService {
	return &AdminService{
		authService: authService,
		log:         log.With().Str("component", "admin_service").Logger(),
	}
}

// Login checks the credentials and opens the single admin session.
func (s *AdminService) Login(ctx context.Context, req model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	if err := s.authService.CheckAdminCredentials(req.Username, req.Password); err != nil {
		s.log.Warn().Str("username", req.Username).Msg("Rejected admin login")
		return nil, err
	}

	token, err := s.authService.GenerateAdminToken(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("issue admin token: %w", err)
	}

	s.log.Info().Str("username", req.Username).Msg("Admin logged in")
	return &model.AdminLoginResponse{Token: token, Username: req.Username}, nil
}

// Logout ends the admin session.
func (s *AdminService) Logout(ctx context.Context, username string) error {
	if err := s.authService.RevokeAdminSession(ctx, username); err != nil {
		return fmt.Errorf("revoke admin session: %w", err)
	}
	s.log.Info().Str("username", username).Msg("Admin logged out")
	return nil
}
