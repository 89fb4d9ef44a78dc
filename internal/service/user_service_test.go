package service

import (
	"testing"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	user, err := f.users.Register(f.ctx, RegisterRequest{Name: " Carol ", Email: "Carol@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Carol", user.Name)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, model.RoleCustomer, user.Role)
	assert.Equal(t, "0.0000", user.PriceModifier)

	_, err = f.users.Register(f.ctx, RegisterRequest{Name: "Carol", Email: "carol@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	tok, err := f.users.Login(f.ctx, LoginRequest{Email: "CAROL@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "token-"+user.ID.String(), tok.Token)

	_, err = f.users.Login(f.ctx, LoginRequest{Email: "carol@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = f.users.Login(f.ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	me, err := f.users.Me(f.ctx, Actor{UserID: user.ID, Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
}

func TestSetPriceModifier(t *testing.T) {
	f := newFixture(t)

	res, err := f.users.SetPriceModifier(f.ctx, f.admin, f.other.UserID.String(), SetPriceModifierRequest{PriceModifier: "0.03"})
	require.NoError(t, err)
	assert.Equal(t, "0.0300", res.PriceModifier)

	_, err = f.users.SetPriceModifier(f.ctx, f.customer, f.other.UserID.String(), SetPriceModifierRequest{PriceModifier: "-1"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.users.SetPriceModifier(f.ctx, f.admin, f.admin.UserID.String(), SetPriceModifierRequest{PriceModifier: "0.01"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.users.SetPriceModifier(f.ctx, f.admin, uuid.NewString(), SetPriceModifierRequest{PriceModifier: "0.01"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	customers, total, err := f.users.ListCustomers(f.ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, customers, 2)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.users.EnsureAdmin(f.ctx, "Ops", "ops@example.com", "changeme"))
	require.NoError(t, f.users.EnsureAdmin(f.ctx, "Ops", "OPS@example.com", "changeme"))

	tok, err := f.users.Login(f.ctx, LoginRequest{Email: "ops@example.com", Password: "changeme"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, tok.User.Role)
}
