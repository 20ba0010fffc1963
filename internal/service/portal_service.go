package service

import (
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/session"
)

// PortalSession is returned when a browser opens a new exam session.
type PortalSession struct {
	Token   string       `json:"token"`
	Session session.View `json:"session"`
}

// PortalService creates exam sessions and binds them to portal tokens.
type PortalService struct {
	registry    *session.Registry
	authService *AuthService
	log         zerolog.Logger
}

// NewPortalService creates a new PortalService.
func NewPortalService(registry *session.Registry, authService *AuthService, log zerolog.Logger) *PortalService {
	return &PortalService{
		registry:    registry,
		authService: authService,
		log:         log.With().Str("component", "portal_service").Logger(),
	}
}

// Open creates a session in the registration stage and a token for it.
func (s *PortalService) Open() (*PortalSession, error) {
	ctrl := s.registry.Create()
	token, err := s.authService.GeneratePortalToken(ctrl.ID())
	if err != nil {
		s.registry.Remove(ctrl.ID())
		return nil, err
	}
	s.log.Debug().Str("session_id", ctrl.ID()).Msg("Portal session opened")
	return &PortalSession{Token: token, Session: ctrl.Snapshot()}, nil
}

// Resolve returns the live controller behind a session id.
func (s *PortalService) Resolve(sessionID string) (*session.Controller, error) {
	return s.registry.Get(sessionID)
}

// Close abandons a session and forgets it.
func (s *PortalService) Close(sessionID string) error {
	if !s.registry.Remove(sessionID) {
		return session.ErrSessionNotFound
	}
	return nil
}

// Sessions lists every live session, for the admin monitor.
func (s *PortalService) Sessions() []session.View {
	return s.registry.Snapshots()
}
