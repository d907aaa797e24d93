package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/shashiranjanraj/shopfront/pkg/cache"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

const storesKey = "stores:all"

// RegisterStoreInput creates a store together with its first admin.
type RegisterStoreInput struct {
	StoreName string `json:"storeName" validate:"required,max=160"`
	Address   string `json:"address"   validate:"required,max=255"`
	WhatsApp  string `json:"whatsapp"  validate:"nullable,phone"`
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,max=120"`
	LastName  string `json:"lastName"  validate:"required,max=120"`
	Password  string `json:"password"  validate:"required,min=6"`
}

// UpdateStoreInput is partial. A whatsapp sent as "" clears the number.
type UpdateStoreInput struct {
	StoreName *string `json:"storeName" validate:"nullable,max=160"`
	Address   *string `json:"address"   validate:"nullable,max=255"`
	WhatsApp  *string `json:"whatsapp"  validate:"nullable,phone"`
}

// StoreRegistration is the outcome of Register.
type StoreRegistration struct {
	Store *models.Store `json:"store"`
	Admin *models.User  `json:"adminUser"`
}

type StoreService struct {
	repos *repositories.Repositories
}

func NewStoreService(repos *repositories.Repositories) *StoreService {
	return &StoreService{repos: repos}
}

// All lists every store with its owner summary.
func (s *StoreService) All(ctx context.Context) ([]models.StoreWithOwner, error) {
	return cache.Remember(ctx, storesKey, config.CacheTTL(), func() ([]models.StoreWithOwner, error) {
		stores, err := s.repos.Stores.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("stores: all: %w", err)
		}
		return s.withOwners(ctx, stores)
	})
}

// Register creates the store, its admin, and links the two, atomically.
func (s *StoreService) Register(ctx context.Context, in RegisterStoreInput) (*StoreRegistration, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	store := &models.Store{
		ID:        newID(),
		StoreName: strings.TrimSpace(in.StoreName),
		Address:   strings.TrimSpace(in.Address),
		WhatsApp:  strings.TrimSpace(in.WhatsApp),
	}
	admin := &models.User{
		ID:        newID(),
		Email:     normalizeEmail(in.Email),
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      models.RoleAdmin,
		StoreID:   store.ID,
	}

	err = s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Users.FindByEmail(ctx, admin.Email); err == nil {
			return errEmailTaken
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("stores: register: %w", err)
		}
		if err := s.repos.Stores.Create(ctx, store); err != nil {
			return fmt.Errorf("stores: register: %w", err)
		}
		if err := s.repos.Users.Create(ctx, admin); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return errEmailTaken
			}
			return fmt.Errorf("stores: register admin: %w", err)
		}
		store.OwnerID = admin.ID
		if err := s.repos.Stores.Update(ctx, store); err != nil {
			return fmt.Errorf("stores: register owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.forget(ctx)
	logger.WithCtx(ctx).Info("store registered", "store_id", store.ID, "admin_id", admin.ID)
	return &StoreRegistration{Store: store, Admin: admin}, nil
}

// Show returns the store and its active products.
func (s *StoreService) Show(ctx context.Context, id string) (*models.StoreWithOwner, []models.Product, error) {
	store, err := s.repos.Stores.FindByID(ctx, id)
	if err != nil {
		return nil, nil, missing(err, "stores: show", "store not found")
	}
	list, err := s.withOwners(ctx, []models.Store{*store})
	if err != nil {
		return nil, nil, err
	}
	products, err := s.repos.Products.List(ctx, repositories.ProductFilter{StoreID: id, ActiveOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("stores: show products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return &list[0], products, nil
}

// Update edits a store. Only the admin who owns it may.
func (s *StoreService) Update(ctx context.Context, actor *auth.Claims, id string, in UpdateStoreInput) (*models.StoreWithOwner, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	store, err := s.repos.Stores.FindByID(ctx, id)
	if err != nil {
		return nil, missing(err, "stores: update", "store not found")
	}
	if !actor.IsAdmin() || store.OwnerID == "" || store.OwnerID != actor.UserID {
		return nil, apperr.Forbidden("only the store owner can edit this store")
	}

	if in.StoreName != nil && strings.TrimSpace(*in.StoreName) != "" {
		store.StoreName = strings.TrimSpace(*in.StoreName)
	}
	if in.Address != nil && strings.TrimSpace(*in.Address) != "" {
		store.Address = strings.TrimSpace(*in.Address)
	}
	if in.WhatsApp != nil {
		store.WhatsApp = strings.TrimSpace(*in.WhatsApp)
	}
	if err := s.repos.Stores.Update(ctx, store); err != nil {
		return nil, missing(err, "stores: update", "store not found")
	}

	s.forget(ctx)
	list, err := s.withOwners(ctx, []models.Store{*store})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *StoreService) withOwners(ctx context.Context, stores []models.Store) ([]models.StoreWithOwner, error) {
	var ids []string
	for _, st := range stores {
		if st.OwnerID != "" {
			ids = append(ids, st.OwnerID)
		}
	}
	owners := map[string]*models.User{}
	if len(ids) > 0 {
		users, err := s.repos.Users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("stores: owners: %w", err)
		}
		for i := range users {
			owners[users[i].ID] = &users[i]
		}
	}

	out := make([]models.StoreWithOwner, len(stores))
	for i, st := range stores {
		out[i] = models.StoreWithOwner{Store: st, Owner: owners[st.OwnerID].Summary()}
	}
	return out, nil
}

func (s *StoreService) forget(ctx context.Context) {
	if err := cache.Del(ctx, storesKey); err != nil {
		logger.WithCtx(ctx).Warn("store cache not cleared", "error", err)
	}
}
