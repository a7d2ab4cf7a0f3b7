package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/pkg/config"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]*models.User
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	for _, user := range s.users {
		if user.PublicID == publicID {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newTestAuthService(t *testing.T, active bool) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userRepoStub{users: map[string]*models.User{
		"admin@example.com": {
			PublicID:       "user-1",
			OrganizationID: 1,
			Email:          "admin@example.com",
			PasswordHash:   string(hash),
			Role:           models.RoleOrgAdmin,
			Active:         active,
		},
	}}
	cfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}
	return NewAuthService(users, cfg, validator.New(), zap.NewNop())
}

func TestAuthServiceLogin(t *testing.T) {
	service := newTestAuthService(t, true)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleOrgAdmin, claims.Role)
	assert.Equal(t, int64(1), claims.OrganizationID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	service := newTestAuthService(t, true)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	service := newTestAuthService(t, true)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactive(t *testing.T) {
	service := newTestAuthService(t, false)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceValidateTokenGarbage(t *testing.T) {
	service := newTestAuthService(t, true)

	_, err := service.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
