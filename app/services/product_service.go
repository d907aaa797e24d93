package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/shashiranjanraj/shopfront/app/events"
	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/cache"
	"github.com/shashiranjanraj/shopfront/pkg/event"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/storage"
	"github.com/shopspring/decimal"
)

const catalogPrefix = "products:"

// CreateProductInput is the body of POST /api/products. Pointer fields
// let a zero price, stock or status through "required".
type CreateProductInput struct {
	Title       string           `json:"title"       validate:"required,max=200"`
	Description string           `json:"description" validate:"required"`
	Code        string           `json:"code"        validate:"required,max=100"`
	Price       *decimal.Decimal `json:"price"       validate:"required,gte=0"`
	Status      *bool            `json:"status"      validate:"required"`
	Stock       *int             `json:"stock"       validate:"required,gte=0"`
	Category    string           `json:"category"    validate:"required,max=100"`
	Thumbnails  []string         `json:"thumbnails"`
}

// UpdateProductInput is a partial update; nil fields are left alone.
type UpdateProductInput struct {
	Title       *string          `json:"title"       validate:"nullable,max=200"`
	Description *string          `json:"description"`
	Code        *string          `json:"code"        validate:"nullable,max=100"`
	Price       *decimal.Decimal `json:"price"       validate:"nullable,gte=0"`
	Status      *bool            `json:"status"`
	Stock       *int             `json:"stock"       validate:"nullable,gte=0"`
	Category    *string          `json:"category"    validate:"nullable,max=100"`
	Thumbnails  []string         `json:"thumbnails"`
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type ProductService struct {
	repos *repositories.Repositories
	bus   *event.Bus
	disk  storage.Disk
}

func NewProductService(repos *repositories.Repositories, bus *event.Bus, disk storage.Disk) *ProductService {
	return &ProductService{repos: repos, bus: bus, disk: disk}
}

// List returns products matching f, newest first. Listings without a
// free-text search are cached until the next product write.
func (s *ProductService) List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, error) {
	load := func() ([]models.Product, error) {
		list, err := s.repos.Products.List(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("products: list: %w", err)
		}
		if list == nil {
			list = []models.Product{}
		}
		return list, nil
	}
	if f.Search != "" {
		return load()
	}
	key := fmt.Sprintf("%slist:%s:%t:%s", catalogPrefix, f.StoreID, f.ActiveOnly, strings.ToLower(f.Category))
	return cache.Remember(ctx, key, config.CacheTTL(), load)
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, missing(err, "products: get", errProductNotFound.Message)
	}
	return p, nil
}

// Create adds a product to storeID.
func (s *ProductService) Create(ctx context.Context, storeID string, in CreateProductInput) (*models.Product, error) {
	if storeID == "" {
		return nil, apperr.Forbidden("admin is not linked to any store")
	}
	if err := check(in); err != nil {
		return nil, err
	}

	p := &models.Product{
		ID:          newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Code:        strings.TrimSpace(in.Code),
		Category:    strings.TrimSpace(in.Category),
		Price:       *in.Price,
		Stock:       *in.Stock,
		Status:      *in.Status,
		Thumbnails:  thumbnails(in.Thumbnails),
		StoreID:     storeID,
	}
	if err := s.repos.Products.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("product code already exists")
		}
		return nil, fmt.Errorf("products: create: %w", err)
	}

	s.changed(ctx, events.ProductCreated, p)
	return p, nil
}

// Update applies the non-nil fields of in to a product of storeID.
func (s *ProductService) Update(ctx context.Context, storeID, id string, in UpdateProductInput) (*models.Product, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, storeID, id, "you cannot edit this product")
	if err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Code != nil && strings.TrimSpace(*in.Code) != "" {
		p.Code = strings.TrimSpace(*in.Code)
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Thumbnails != nil {
		p.Thumbnails = thumbnails(in.Thumbnails)
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.changed(ctx, events.ProductUpdated, p)
	return p, nil
}

// Delete retires a product: it stays resolvable for paid carts but can
// no longer be sold.
func (s *ProductService) Delete(ctx context.Context, storeID, id string) error {
	p, err := s.owned(ctx, storeID, id, "you cannot delete this product")
	if err != nil {
		return err
	}
	p.Status = false
	p.Stock = 0
	if err := s.save(ctx, p); err != nil {
		return err
	}
	s.changed(ctx, events.ProductDeleted, p)
	return nil
}

// AddThumbnail uploads an image to the storage disk and appends its URL.
func (s *ProductService) AddThumbnail(ctx context.Context, storeID, id, filename string, r io.Reader) (*models.Product, error) {
	if s.disk == nil {
		return nil, apperr.New(503, "file storage is not configured")
	}
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return nil, apperr.Validation(map[string]string{"file": "The file must be a png, jpg, gif or webp image."})
	}
	p, err := s.owned(ctx, storeID, id, "you cannot edit this product")
	if err != nil {
		return nil, err
	}

	key := "products/" + p.ID + "/" + newID() + ext
	if err := s.disk.Put(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("products: store thumbnail: %w", err)
	}
	p.Thumbnails = append(p.Thumbnails, s.disk.URL(key))
	if err := s.save(ctx, p); err != nil {
		if derr := s.disk.Delete(ctx, key); derr != nil {
			logger.WithCtx(ctx).Warn("orphaned thumbnail", "key", key, "error", derr)
		}
		return nil, err
	}

	s.changed(ctx, events.ProductUpdated, p)
	return p, nil
}

func (s *ProductService) owned(ctx context.Context, storeID, id, denied string) (*models.Product, error) {
	p, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, missing(err, "products", errProductNotFound.Message)
	}
	if storeID == "" || p.StoreID != storeID {
		return nil, apperr.Forbidden("%s", denied)
	}
	return p, nil
}

func (s *ProductService) save(ctx context.Context, p *models.Product) error {
	err := s.repos.Products.Update(ctx, p)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrDuplicate):
		return apperr.Conflict("product code already exists")
	case errors.Is(err, repositories.ErrNotFound):
		return errProductNotFound
	}
	return fmt.Errorf("products: update: %w", err)
}

func (s *ProductService) changed(ctx context.Context, action string, p *models.Product) {
	forgetCatalog(ctx)
	logger.WithCtx(ctx).Info("product "+action, "product_id", p.ID, "store_id", p.StoreID)
	publish(ctx, s.bus, events.ProductChanged{Action: action, Product: *p})
}

// forgetCatalog drops every cached product listing.
func forgetCatalog(ctx context.Context) {
	if err := cache.ForgetPrefix(ctx, catalogPrefix); err != nil {
		logger.WithCtx(ctx).Warn("catalog cache not cleared", "error", err)
	}
}

func thumbnails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
