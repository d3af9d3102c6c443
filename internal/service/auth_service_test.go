package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository/repofakes"
)

func newAuth() *AuthService {
	return NewAuthService(repofakes.NewFakeUserRepo(), "test-secret", time.Hour, zap.NewNop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newAuth()
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterUserDTO{Username: "gatekeeper", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, user.Role)
	assert.Empty(t, user.Password)

	_, err = svc.Register(ctx, domain.RegisterUserDTO{Username: "gatekeeper", Password: "other1"})
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Login(ctx, domain.LoginUserDTO{Username: "gatekeeper", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, domain.LoginUserDTO{Username: "nobody", Password: "s3cret!"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Username: "gatekeeper", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.UserID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "gatekeeper", claims.Username)
	assert.Equal(t, domain.RoleOperator, claims.Role)
	assert.Equal(t, "1", claims.Subject)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := newAuth()
	ctx := context.Background()
	_, err := svc.Register(ctx, domain.RegisterUserDTO{Username: "gatekeeper", Password: "s3cret!"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Username: "gatekeeper", Password: "s3cret!"})
	require.NoError(t, err)

	_, err = svc.ValidateToken("not-a-jwt")
	require.ErrorIs(t, err, ErrTokenInvalid)

	other := NewAuthService(repofakes.NewFakeUserRepo(), "another-secret", time.Hour, zap.NewNop())
	_, err = other.ValidateToken(resp.Token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.Token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc := newAuth()
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "rootpass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "changed"))

	resp, err := svc.Login(ctx, domain.LoginUserDTO{Username: "root", Password: "rootpass"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, resp.Role)
}
