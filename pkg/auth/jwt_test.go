package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")

	token, issued, err := auth.GenerateToken(auth.Subject{
		ID: "u-1", Email: "ana@tienda.com", Role: auth.RoleAdmin,
		FirstName: "Ana", LastName: "Paz", StoreID: "s-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID, "jti must be set for revocation")

	claims, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "s-1", claims.Store)
	assert.True(t, claims.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(config.JWTTTL()), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	config.Set("JWT_SECRET", "one")
	token, _, err := auth.GenerateToken(auth.Subject{ID: "u-1", Role: auth.RoleUser})
	require.NoError(t, err)

	config.Set("JWT_SECRET", "two")
	_, err = auth.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")
	claims := auth.Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, auth.CheckPassword(hash, "secret1"))
	assert.False(t, auth.CheckPassword(hash, "secret2"))
}

func TestClaimsContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: "u-9"})
	c, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-9", c.UserID)
}
