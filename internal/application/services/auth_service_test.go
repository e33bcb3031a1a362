package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questmaster/core/internal/domain/entities"
	"github.com/questmaster/core/internal/infrastructure/config"
	"github.com/questmaster/core/internal/infrastructure/logger"
	"github.com/questmaster/core/internal/ports"
)

type fakeUserRepo struct {
	users map[string]*entities.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entities.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entities.User) error {
	// Store a copy so later mutations of the caller's struct (e.g. the
	// service blanking PasswordHash) don't alter the "persisted" row,
	// matching real database semantics.
	stored := *user
	r.users[user.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			found := *user
			return &found, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	found := *user
	return &found, nil
}

var _ ports.UserRepository = (*fakeUserRepo)(nil)

func newAuthFixture() *AuthService {
	jwtCfg := config.JWTConfig{
		Secret:    "test-secret-at-least-32-characters!!",
		ExpiresIn: time.Hour,
		Issuer:    "questmaster",
	}
	return NewAuthService(newFakeUserRepo(), jwtCfg, logger.NewNop())
}

func TestLoginRoundTrip(t *testing.T) {
	svc := newAuthFixture()

	created, err := svc.CreateUser(context.Background(), "ada@example.com", "ada", "hunter2hunter2")
	require.NoError(t, err)
	assert.Empty(t, created.PasswordHash, "hash never leaves the service")

	resp, err := svc.Login(context.Background(), ports.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuthFixture()

	_, err := svc.CreateUser(context.Background(), "ada@example.com", "ada", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), ports.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	assert.Error(t, err)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := newAuthFixture()

	_, err := svc.Login(context.Background(), ports.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthFixture()

	_, err := svc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc := newAuthFixture()

	_, err := svc.CreateUser(context.Background(), "ada@example.com", "ada", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), "ada@example.com", "ada2", "hunter2hunter2")
	assert.Error(t, err)
}
