package services

import (
	"context"
	"testing"

	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateAndToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svcs.User.Create(ctx, adminActor, UserInput{Email: "clerk@example.com", Password: "short"})
	assert.Equal(t, "user.password_too_short", validationKey(t, err))

	_, err = env.svcs.User.Create(ctx, adminActor, UserInput{Email: "clerk@example.com", Password: "long-enough", Role: "owner"})
	require.Error(t, err)

	user, err := env.svcs.User.Create(ctx, adminActor, UserInput{Email: " Clerk@Example.com ", Password: "long-enough", FullName: "Clerk"})
	require.NoError(t, err)
	assert.Equal(t, "clerk@example.com", user.Email)
	assert.Equal(t, models.RoleStaff, user.Role)

	_, err = env.svcs.User.Create(ctx, adminActor, UserInput{Email: "clerk@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrDuplicate)

	self := Actor{UserID: user.ID, Role: models.RoleAdmin}
	_, err = env.svcs.User.ToggleStatus(ctx, self, user.ID)
	assert.Equal(t, "user.self_deactivate", validationKey(t, err))

	toggled, err := env.svcs.User.ToggleStatus(ctx, adminActor, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, toggled.Status)
}

func TestUserService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svcs.User.Create(ctx, adminActor, UserInput{Email: "clerk@example.com", Password: "first-pass"})
	require.NoError(t, err)
	actor := Actor{UserID: user.ID, Role: user.Role}

	err = env.svcs.User.ChangePassword(ctx, actor, "wrong-pass", "second-pass")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	require.NoError(t, env.svcs.User.ChangePassword(ctx, actor, "first-pass", "second-pass"))

	_, err = env.svcs.Auth.Login(ctx, "clerk@example.com", "second-pass")
	assert.NoError(t, err)
}
