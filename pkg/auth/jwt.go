// Package auth issues and verifies the bearer tokens shoppers and store
// admins authenticate with, and hashes their passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/cache"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrRevoked is returned by ValidateToken for tokens invalidated by logout.
var ErrRevoked = errors.New("auth: token revoked")

// Subject is the identity a token is issued for.
type Subject struct {
	ID        string
	Email     string
	Role      string
	FirstName string
	LastName  string
	StoreID   string
}

// Claims holds the typed JWT payload. Store is only present for users
// attached to a store.
type Claims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Store     string `json:"store,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool { return c != nil && c.Role == RoleAdmin }

func secret() []byte {
	return []byte(config.JWTSecret())
}

// GenerateToken signs an HS256 token for s that expires after JWT_TTL.
func GenerateToken(s Subject) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    s.ID,
		Email:     s.Email,
		Role:      s.Role,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Store:     s.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    config.AppName(),
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.JWTTTL())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// ValidateToken parses t, checks signature, expiry and the logout denylist.
func ValidateToken(ctx context.Context, t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if claims.ID != "" {
		revoked, err := cache.Has(ctx, revokedKey(claims.ID))
		if err == nil && revoked {
			return nil, ErrRevoked
		}
	}
	return claims, nil
}

// Revoke denylists the token until it would have expired anyway. Without
// Redis it is a no-op and the client is expected to drop the token.
func Revoke(ctx context.Context, c *Claims) error {
	if c == nil || c.ID == "" || c.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(c.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return cache.Set(ctx, revokedKey(c.ID), true, ttl)
}

func revokedKey(jti string) string { return "auth:revoked:" + jti }

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type claimsKey struct{}

// WithClaims stores the authenticated caller in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the caller stored by the auth middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
