package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepo struct {
	repository.UserRepository
	mockFindByEmail func(ctx context.Context, email string) (*models.User, error)
	mockFindByID    func(ctx context.Context, id uint) (*models.User, error)
	touched         uint
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.mockFindByEmail(ctx, email)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	m.touched = id
	return nil
}

type mockRTRepo struct {
	repository.RefreshTokenRepository
	mockFindByToken func(ctx context.Context, token string) (*models.RefreshToken, error)
	mockDelete      func(ctx context.Context, token string) error
	created         []string
}

func (m *mockRTRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return m.mockFindByToken(ctx, token)
}

func (m *mockRTRepo) Delete(ctx context.Context, token string) error {
	if m.mockDelete != nil {
		return m.mockDelete(ctx, token)
	}
	return nil
}

func (m *mockRTRepo) Create(ctx context.Context, rt *models.RefreshToken) error {
	m.created = append(m.created, rt.Token)
	return nil
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	service := NewAuthService(mockRepo, nil, nil)

	mockRepo.mockFindByEmail = func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{
			Email:  email,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.Login(context.Background(), "inactive@example.com", "password")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	mockRepo := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email, Status: models.StatusActive, EncryptedPassword: hash}, nil
	}}
	service := NewAuthService(mockRepo, &mockRTRepo{}, &config.Config{JWTSecret: "secret", JWTExpirationHours: 1})

	_, err = service.Login(context.Background(), "staff@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_Success(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	var lookedUp string
	mockRepo := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		lookedUp = email
		return &models.User{ID: 7, Email: email, Role: models.RoleStaff, Status: models.StatusActive, EncryptedPassword: hash}, nil
	}}
	rtRepo := &mockRTRepo{}
	service := NewAuthService(mockRepo, rtRepo, &config.Config{JWTSecret: "secret", JWTExpirationHours: 1})

	result, err := service.Login(context.Background(), "  Staff@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", lookedUp)
	assert.NotEmpty(t, result.AccessToken)
	assert.Empty(t, result.LegacyToken)
	assert.Len(t, rtRepo.created, 1)
	assert.Equal(t, rtRepo.created[0], result.RefreshToken)
	assert.Equal(t, uint(7), mockRepo.touched)
	assert.NotNil(t, result.User.LastLoginAt)
}

func TestAuthService_RefreshToken_InactiveUser(t *testing.T) {
	mockRepo := &mockUserRepo{}
	rtRepo := &mockRTRepo{}
	service := NewAuthService(mockRepo, rtRepo, nil)

	rtRepo.mockFindByToken = func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 1}, nil
	}
	mockRepo.mockFindByID = func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{
			ID:     id,
			Status: models.StatusInactive,
		}, nil
	}

	result, err := service.Refresh(context.Background(), "token")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAuthService_RefreshToken_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	deleted := ""
	rtRepo := &mockRTRepo{
		mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return &models.RefreshToken{UserID: 1, ExpiresAt: &past}, nil
		},
		mockDelete: func(ctx context.Context, token string) error {
			deleted = token
			return nil
		},
	}
	service := NewAuthService(&mockUserRepo{}, rtRepo, nil)

	_, err := service.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "stale", deleted)
}

func TestAuthService_RefreshToken_Unknown(t *testing.T) {
	rtRepo := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return nil, errors.New("record not found")
	}}
	service := NewAuthService(&mockUserRepo{}, rtRepo, nil)

	_, err := service.Refresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_SessionTokenAuthenticates(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	users := &mockUserRepo{mockFindByEmail: func(ctx context.Context, email string) (*models.User, error) {
		return &models.User{ID: 4, Email: email, Role: models.RoleAdmin, Status: models.StatusActive, EncryptedPassword: hash}, nil
	}}
	cfg := &config.Config{JWTSecret: "secret", JWTExpirationHours: 2, LegacyTokenPrefix: "islam__"}
	service := NewAuthService(users, &mockRTRepo{}, cfg)

	session, err := service.Login(context.Background(), "admin@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "islam__"+session.AccessToken, session.LegacyToken)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), session.ExpiresAt, time.Minute)

	claims, err := service.Authenticate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(4), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = NewAuthService(nil, nil, &config.Config{JWTSecret: "other"}).Authenticate(session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Authenticate_Expired(t *testing.T) {
	users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Role: models.RoleStaff, Status: models.StatusActive}, nil
	}}
	rtRepo := &mockRTRepo{mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
		return &models.RefreshToken{UserID: 3}, nil
	}}
	service := NewAuthService(users, rtRepo, &config.Config{JWTSecret: "secret", JWTExpirationHours: 1})
	service.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }

	session, err := service.Refresh(context.Background(), "still-good")
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.Authenticate(session.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_Refresh_RevokesPresentedToken(t *testing.T) {
	var deleted []string
	rtRepo := &mockRTRepo{
		mockFindByToken: func(ctx context.Context, token string) (*models.RefreshToken, error) {
			return &models.RefreshToken{UserID: 9}, nil
		},
		mockDelete: func(ctx context.Context, token string) error {
			deleted = append(deleted, token)
			return nil
		},
	}
	users := &mockUserRepo{mockFindByID: func(ctx context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Status: models.StatusActive}, nil
	}}
	service := NewAuthService(users, rtRepo, &config.Config{JWTSecret: "secret", JWTExpirationHours: 1})

	session, err := service.Refresh(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, deleted)
	assert.Equal(t, []string{session.RefreshToken}, rtRepo.created)
	assert.NotEqual(t, "old", session.RefreshToken)
}

func TestAuthService_LogoutEverywhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, actor := range []Actor{adminActor, staffActor} {
		require.NoError(t, env.repos.User.Create(ctx, &models.User{
			ID:                actor.UserID,
			Email:             fmt.Sprintf("user%d@agency.test", actor.UserID),
			EncryptedPassword: "x",
			Role:              actor.Role,
		}))
	}
	for _, token := range []string{"a", "b"} {
		require.NoError(t, env.repos.RefreshToken.Create(ctx, &models.RefreshToken{UserID: staffActor.UserID, Token: token}))
	}
	require.NoError(t, env.repos.RefreshToken.Create(ctx, &models.RefreshToken{UserID: adminActor.UserID, Token: "c"}))

	require.NoError(t, env.svcs.Auth.Logout(ctx, "  "))
	require.NoError(t, env.svcs.Auth.LogoutEverywhere(ctx, staffActor.UserID))

	for _, token := range []string{"a", "b"} {
		_, err := env.repos.RefreshToken.FindByToken(ctx, token)
		assert.Error(t, err)
	}
	_, err := env.repos.RefreshToken.FindByToken(ctx, "c")
	assert.NoError(t, err)
}
