package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

var (
	errEmailTaken   = apperr.Conflict("email is already registered")
	errBadLogin     = apperr.Unauthorized("invalid credentials")
	errUserNotFound = apperr.NotFound("user not found")
)

type RegisterInput struct {
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,max=120"`
	LastName  string `json:"lastName"  validate:"required,max=120"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,max=120"`
	LastName  string `json:"lastName"  validate:"required,max=120"`
}

// CreateUserInput is what an admin sends to add a user to their store.
type CreateUserInput struct {
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,max=120"`
	LastName  string `json:"lastName"  validate:"required,max=120"`
	Role      string `json:"role"      validate:"nullable,in=user|admin"`
}

// Session is a signed token and the user it was issued for.
type Session struct {
	Token  string       `json:"token"`
	User   *models.User `json:"user"`
	Claims *auth.Claims `json:"-"`
}

type AuthService struct {
	repos *repositories.Repositories
}

func NewAuthService(repos *repositories.Repositories) *AuthService {
	return &AuthService{repos: repos}
}

// Register signs up a shopper.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.newUser(in.Email, in.Password, in.FirstName, in.LastName, models.RoleUser, "")
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, u, errEmailTaken); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login checks credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.repos.Users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errBadLogin
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		logger.WithCtx(ctx).Warn("login rejected", "user_id", u.ID)
		return nil, errBadLogin
	}
	return issue(u)
}

// Profile returns a user. Shoppers may only read themselves.
func (s *AuthService) Profile(ctx context.Context, actor *auth.Claims, id string) (*models.User, error) {
	if actor == nil || (actor.UserID != id && !actor.IsAdmin()) {
		return nil, apperr.Forbidden("access denied")
	}
	u, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		return nil, missing(err, "auth: profile", errUserNotFound.Message)
	}
	return u, nil
}

func (s *AuthService) Users(ctx context.Context) ([]models.User, error) {
	users, err := s.repos.Users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// UpdateProfile edits the caller's own names and email and re-issues the
// token so the claims match.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Session, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	u, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "auth: update profile", errUserNotFound.Message)
	}

	email := normalizeEmail(in.Email)
	if email != u.Email {
		other, err := s.repos.Users.FindByEmail(ctx, email)
		switch {
		case err == nil && other.ID != u.ID:
			return nil, errEmailTaken
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("auth: update profile: %w", err)
		}
	}

	u.Email = email
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	if err := s.repos.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, missing(err, "auth: update profile", errUserNotFound.Message)
	}
	return issue(u)
}

// Logout revokes the caller's token. A cache failure is logged and the
// client is still told to drop the token.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := auth.Revoke(ctx, claims); err != nil {
		logger.WithCtx(ctx).Warn("token not revoked", "error", err)
	}
	return nil
}

// CreateUser lets an admin add a shopper or another admin to their store.
func (s *AuthService) CreateUser(ctx context.Context, creator *auth.Claims, in CreateUserInput) (*models.User, error) {
	if !creator.IsAdmin() {
		return nil, apperr.Forbidden("admin access required")
	}
	if err := check(in); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	u, err := s.newUser(in.Email, in.Password, in.FirstName, in.LastName, role, creator.Store)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, u, apperr.Conflict("user already exists")); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("user created by admin", "new_user_id", u.ID, "role", role)
	return u, nil
}

func (s *AuthService) newUser(email, password, first, last, role, storeID string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        newID(),
		Email:     normalizeEmail(email),
		Password:  hash,
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Role:      role,
		StoreID:   storeID,
	}, nil
}

func (s *AuthService) create(ctx context.Context, u *models.User, dup error) error {
	if _, err := s.repos.Users.FindByEmail(ctx, u.Email); err == nil {
		return dup
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("auth: create user: %w", err)
	}
	if err := s.repos.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return dup
		}
		return fmt.Errorf("auth: create user: %w", err)
	}
	return nil
}

func issue(u *models.User) (*Session, error) {
	token, claims, err := auth.GenerateToken(auth.Subject{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		StoreID:   u.StoreID,
	})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u, Claims: claims}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
