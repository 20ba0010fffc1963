package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/exam-portal/internal/config"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)

// TokenType distinguishes portal vs admin tokens.
type TokenType string

const (
	TokenTypePortal TokenType = "portal"
	TokenTypeAdmin  TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	SessionID string    `json:"session_id,omitempty"` // Portal only
	Username  string    `json:"username,omitempty"`   // Admin only
}

// AuthService handles JWTs, the admin credential check and the admin session.
type AuthService struct {
	cfg          *config.Config
	rdb          *redis.Client
	passwordHash []byte
	log          zerolog.Logger
}

// NewAuthService creates a new AuthService. When no password hash is
// configured the plain ADMIN_PASSWORD is hashed once here.
func NewAuthService(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (*AuthService, error) {
	s := &AuthService{
		cfg: cfg,
		rdb: rdb,
		log: log.With().Str("component", "auth_service").Logger(),
	}

	hash := cfg.AdminPasswordHash
	if hash == "" {
		generated, err := s.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = generated
		s.log.Warn().Msg("ADMIN_PASSWORD_HASH not set, using ADMIN_PASSWORD")
	}
	s.passwordHash = []byte(hash)
	return s, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckAdminCredentials compares the username in constant time and the
// password against the configured bcrypt hash.
func (s *AuthService) CheckAdminCredentials(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GeneratePortalToken creates a JWT bound to one exam session.
func (s *AuthService) GeneratePortalToken(sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.PortalTokenExpiry)),
		},
		TokenType: TokenTypePortal,
		SessionID: sessionID,
	}
	return s.sign(claims)
}

// GenerateAdminToken creates an admin JWT and records its JTI as the only
// active admin session. A later login replaces the earlier one.
func (s *AuthService) GenerateAdminToken(ctx context.Context, username string) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		Username:  username,
	}

	signed, err := s.sign(claims)
	if err != nil {
		return "", err
	}

	// Store session in Redis with same expiry as JWT.
	if err := s.rdb.Set(ctx, config.CacheKey.AdminSessionKey(username), jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateAdminSession checks that the token's JTI is the active admin session.
func (s *AuthService) ValidateAdminSession(ctx context.Context, username, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.AdminSessionKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// RevokeAdminSession ends the active admin session.
func (s *AuthService) RevokeAdminSession(ctx context.Context, username string) error {
	return s.rdb.Del(ctx, config.CacheKey.AdminSessionKey(username)).Err()
}
