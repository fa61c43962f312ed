package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNormalizesEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "  Ann@Acme.COM ", "s3cret", " Ann Lee ")
	require.NoError(t, err)
	assert.Equal(t, "ann@acme.com", u.Email)
	assert.Equal(t, "Ann Lee", u.Name)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = f.users.Register(ctx, "ANN@acme.com", "other", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsEmptyPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Register(context.Background(), "bo@acme.com", "", "Bo")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.users.Register(ctx, "ann@acme.com", "s3cret", "Ann")
	require.NoError(t, err)

	u, err := f.users.Login(ctx, "ANN@acme.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = f.users.Login(ctx, "ann@acme.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Login(ctx, "nobody@acme.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byID, err := f.users.Lookup(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", byID.Email)

	byEmail, err := f.users.Lookup(ctx, "OWNER@example.com")
	require.NoError(t, err)
	assert.Equal(t, f.owner, byEmail.ID)

	_, err = f.users.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, "bo@acme.com", "pw", "Bo")
	require.NoError(t, err)

	_, err = f.users.Update(ctx, f.owner, "bo@acme.com", "", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	u, err := f.users.Update(ctx, f.owner, "New@Example.com", "Renamed", "newpw")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "Renamed", u.Name)

	_, err = f.users.Login(ctx, "new@example.com", "newpw")
	assert.NoError(t, err)

	_, err = f.users.Update(ctx, "ghost", "", "x", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
