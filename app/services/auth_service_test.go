package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     RegisterInput
		status int
	}{
		{"missing fields", RegisterInput{Email: "a@b.co"}, http.StatusBadRequest},
		{"bad email", RegisterInput{Email: "a@b", Password: "secret1", FirstName: "A", LastName: "B"}, http.StatusBadRequest},
		{"short password", RegisterInput{Email: "a@b.co", Password: "12345", FirstName: "A", LastName: "B"}, http.StatusBadRequest},
		{"duplicate", RegisterInput{Email: "Shopper@Mail.test", Password: "secret1", FirstName: "A", LastName: "B"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Register(ctx, tt.in)
			assertStatus(t, tt.status, err)
		})
	}

	assert.Equal(t, models.RoleUser, f.shopper.Role)
	assert.Equal(t, "shopper@mail.test", f.shopper.Email)
	assert.NotEqual(t, "secret1", f.shopper.Password)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Auth.Login(ctx, LoginInput{Email: "shopper@mail.test"})
	assertStatus(t, http.StatusBadRequest, err)
	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "shopper@mail.test", Password: "wrong-pass"})
	assertStatus(t, http.StatusUnauthorized, err)
	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "ghost@mail.test", Password: "secret1"})
	assertStatus(t, http.StatusUnauthorized, err)

	sess, err := f.svc.Auth.Login(ctx, LoginInput{Email: "SHOPPER@mail.test", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, f.shopper.ID, sess.User.ID)

	claims, err := auth.ValidateToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, f.shopper.ID, claims.UserID)
	assert.Equal(t, auth.RoleUser, claims.Role)
	assert.Empty(t, claims.Store)
	assert.NotEmpty(t, claims.ID)

	adminSess, err := f.svc.Auth.Login(ctx, LoginInput{Email: "owner@corner.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, f.store.ID, adminSess.Claims.Store)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Auth.Profile(ctx, f.shopperClaims(), f.shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, f.shopper.Email, u.Email)

	_, err = f.svc.Auth.Profile(ctx, f.shopperClaims(), f.admin.ID)
	assertStatus(t, http.StatusForbidden, err)

	u, err = f.svc.Auth.Profile(ctx, f.adminClaims(), f.shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, f.shopper.ID, u.ID)

	_, err = f.svc.Auth.Profile(ctx, f.adminClaims(), "missing")
	assertStatus(t, http.StatusNotFound, err)

	users, err := f.svc.Auth.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Auth.UpdateProfile(ctx, f.shopper.ID, ProfileInput{Email: "owner@corner.test", FirstName: "S", LastName: "S"})
	assertStatus(t, http.StatusConflict, err)

	_, err = f.svc.Auth.UpdateProfile(ctx, f.shopper.ID, ProfileInput{Email: "bad", FirstName: "S", LastName: "S"})
	assertStatus(t, http.StatusBadRequest, err)

	_, err = f.svc.Auth.UpdateProfile(ctx, "missing", ProfileInput{Email: "x@y.co", FirstName: "S", LastName: "S"})
	assertStatus(t, http.StatusNotFound, err)

	sess, err := f.svc.Auth.UpdateProfile(ctx, f.shopper.ID, ProfileInput{Email: "New@Mail.test", FirstName: "Samantha", LastName: "Shopper"})
	require.NoError(t, err)
	assert.Equal(t, "new@mail.test", sess.User.Email)
	assert.Equal(t, "Samantha", sess.Claims.FirstName)

	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: "new@mail.test", Password: "secret1"})
	assert.NoError(t, err)
}

func TestLogoutWithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Auth.Login(ctx, LoginInput{Email: "shopper@mail.test", Password: "secret1"})
	require.NoError(t, err)

	assert.NoError(t, f.svc.Auth.Logout(ctx, sess.Claims))
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateUserInput{Email: "clerk@corner.test", Password: "secret1", FirstName: "C", LastName: "Lerk"}

	_, err := f.svc.Auth.CreateUser(ctx, f.shopperClaims(), in)
	assertStatus(t, http.StatusForbidden, err)

	bad := in
	bad.Role = "root"
	_, err = f.svc.Auth.CreateUser(ctx, f.adminClaims(), bad)
	assertStatus(t, http.StatusBadRequest, err)

	u, err := f.svc.Auth.CreateUser(ctx, f.adminClaims(), in)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, f.store.ID, u.StoreID)

	_, err = f.svc.Auth.CreateUser(ctx, f.adminClaims(), in)
	assertStatus(t, http.StatusConflict, err)
	assert.Equal(t, "user already exists", err.Error())

	second := in
	second.Email = "manager@corner.test"
	second.Role = models.RoleAdmin
	u, err = f.svc.Auth.CreateUser(ctx, f.adminClaims(), second)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}
