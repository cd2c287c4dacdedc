package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
)

func TestSessionService_SignInOverwrites(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	current, err := env.sessions.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	res, err := env.sessions.SignIn(ctx, "  Asha ", models.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, models.SessionIdentity{Name: "Asha", Role: models.RoleBuyer}, res.Identity)
	assert.NotEmpty(t, res.Token)

	_, err = env.sessions.SignIn(ctx, "Ramesh", models.RoleFarmer)
	require.NoError(t, err)

	current, err = env.sessions.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "Ramesh", current.Name)
	assert.Equal(t, models.RoleFarmer, current.Role)
}

func TestSessionService_SignInValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.SignIn(ctx, "   ", models.RoleBuyer)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.sessions.SignIn(ctx, "Asha", models.Role("admin"))
	assert.ErrorIs(t, err, ErrValidation)

	current, err := env.sessions.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestSessionService_DefaultRoleIsVisitor(t *testing.T) {
	env := setupTestEnv(t)
	res, err := env.sessions.SignIn(context.Background(), "Vic", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleVisitor, res.Identity.Role)
}

func TestSessionService_TokensKeepIndependentIdentities(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	asha, err := env.sessions.SignIn(ctx, "Asha", models.RoleBuyer)
	require.NoError(t, err)
	ramesh, err := env.sessions.SignIn(ctx, "Ramesh", models.RoleFarmer)
	require.NoError(t, err)

	identity, err := env.sessions.Resolve(asha.Token)
	require.NoError(t, err)
	assert.Equal(t, "Asha", identity.Name)

	identity, err = env.sessions.Resolve(ramesh.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ramesh", identity.Name)

	_, err = env.sessions.Resolve("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionService_SignOut(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.sessions.SignIn(ctx, "Asha", models.RoleBuyer)
	require.NoError(t, err)
	require.NoError(t, env.sessions.SignOut(ctx))

	current, err := env.sessions.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
