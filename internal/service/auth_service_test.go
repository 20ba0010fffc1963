package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

func newTestAuth(t *testing.T, cfg *config.Config) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	auth, err := NewAuthService(cfg, rdb, zerolog.Nop())
	require.NoError(t, err)
	return auth, mr
}

func baseConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		PortalTokenExpiry: 2 * time.Hour,
		BcryptCost:        bcrypt.MinCost,
		AdminUsername:     "admin",
		AdminPassword:     "s3cret",
	}
}

func TestAuthService_Credentials(t *testing.T) {
	auth, _ := newTestAuth(t, baseConfig())

	assert.NoError(t, auth.CheckAdminCredentials("admin", "s3cret"))
	assert.ErrorIs(t, auth.CheckAdminCredentials("admin", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, auth.CheckAdminCredentials("root", "s3cret"), ErrInvalidCredentials)
}

func TestAuthService_UsesConfiguredHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("from-hash"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.AdminPasswordHash = string(hash)
	auth, _ := newTestAuth(t, cfg)

	assert.NoError(t, auth.CheckAdminCredentials("admin", "from-hash"))
	assert.ErrorIs(t, auth.CheckAdminCredentials("admin", "s3cret"), ErrInvalidCredentials)
}

func TestAuthService_PortalToken(t *testing.T) {
	auth, _ := newTestAuth(t, baseConfig())

	tok, err := auth.GeneratePortalToken("sess-42")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, TokenTypePortal, claims.TokenType)
	assert.Equal(t, "sess-42", claims.SessionID)

	other, _ := newTestAuth(t, &config.Config{JWTSecret: "other", BcryptCost: bcrypt.MinCost})
	_, err = other.ValidateToken(tok)
	assert.Error(t, err)
}

func TestAdminService_LoginLogout(t *testing.T) {
	auth, mr := newTestAuth(t, baseConfig())
	admin := NewAdminService(auth, zerolog.Nop())
	ctx := context.Background()

	_, err := admin.Login(ctx, adminLogin("admin", "nope"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := admin.Login(ctx, adminLogin("admin", "s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Username)
	assert.True(t, mr.TTL(config.CacheKey.AdminSessionKey("admin")) > 0)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.NoError(t, auth.ValidateAdminSession(ctx, "admin", claims.ID))

	require.NoError(t, admin.Logout(ctx, "admin"))
	assert.ErrorIs(t, auth.ValidateAdminSession(ctx, "admin", claims.ID), ErrSessionInvalidated)
}

func adminLogin(username, password string) model.AdminLoginRequest {
	return model.AdminLoginRequest{Username: username, Password: password}
}
