// Package gormrepo implements the repositories on gorm for sqlite,
// postgres, mysql and sqlserver.
package gormrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/database"
	"github.com/shashiranjanraj/shopfront/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// New wires every repository onto db.
func New(db *gorm.DB) *repositories.Repositories {
	tx := orm.NewTxManager(db)
	return &repositories.Repositories{
		Users:    &UserRepository{db: db},
		Stores:   &StoreRepository{db: db},
		Products: &ProductRepository{db: db},
		Carts:    &CartRepository{db: db, tx: tx},
		Tx:       tx,
		Ping:     func(ctx context.Context) error { return database.Ping(ctx, db) },
		Close:    func(context.Context) error { return database.Close(db) },
	}
}

// translate maps gorm errors onto the repositories sentinels.
func translate(scope string, err error) error {
	switch {
	case err == nil:
		return nil
	case orm.IsNotFound(err):
		return repositories.ErrNotFound
	case orm.IsDuplicate(err):
		return fmt.Errorf("%s: %w", scope, repositories.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", scope, err)
	}
}

// ── users ────────────────────────────────────────────────────────────────────

type UserRepository struct{ db *gorm.DB }

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return translate("users: create", orm.Conn(ctx, r.db).Create(u).Error)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := orm.Conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate("users: find", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := orm.Conn(ctx, r.db).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, translate("users: find by email", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := orm.Conn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error
	return users, translate("users: find many", err)
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	res := orm.Conn(ctx, r.db).Model(u).Select("*").Omit("created_at").Updates(u)
	if res.Error != nil {
		return translate("users: update", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := orm.Conn(ctx, r.db).Order("created_at asc").Find(&users).Error
	return users, translate("users: all", err)
}

// ── stores ───────────────────────────────────────────────────────────────────

type StoreRepository struct{ db *gorm.DB }

func (r *StoreRepository) Create(ctx context.Context, s *models.Store) error {
	return translate("stores: create", orm.Conn(ctx, r.db).Create(s).Error)
}

func (r *StoreRepository) FindByID(ctx context.Context, id string) (*models.Store, error) {
	var s models.Store
	if err := orm.Conn(ctx, r.db).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate("stores: find", err)
	}
	return &s, nil
}

func (r *StoreRepository) All(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	err := orm.Conn(ctx, r.db).Order("created_at asc").Find(&stores).Error
	return stores, translate("stores: all", err)
}

func (r *StoreRepository) Update(ctx context.Context, s *models.Store) error {
	res := orm.Conn(ctx, r.db).Model(s).Select("*").Omit("created_at").Updates(s)
	if res.Error != nil {
		return translate("stores: update", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ── products ─────────────────────────────────────────────────────────────────

type ProductRepository struct{ db *gorm.DB }

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.Thumbnails == nil {
		p.Thumbnails = []string{}
	}
	return translate("products: create", orm.Conn(ctx, r.db).Create(p).Error)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := orm.Conn(ctx, r.db).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate("products: find", err)
	}
	return &p, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	err := orm.Conn(ctx, r.db).Where("id IN ?", ids).Find(&products).Error
	return products, translate("products: find many", err)
}

func (r *ProductRepository) List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, error) {
	q := orm.Conn(ctx, r.db).Model(&models.Product{})
	if f.StoreID != "" {
		q = q.Where("store_id = ?", f.StoreID)
	}
	if f.ActiveOnly {
		q = q.Where("status = ?", true)
	}
	if f.Category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}

	products := make([]models.Product, 0)
	err := q.Order("created_at desc").Find(&products).Error
	return products, translate("products: list", err)
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	res := orm.Conn(ctx, r.db).Model(p).Select("*").Omit("created_at").Updates(p)
	if res.Error != nil {
		return translate("products: update", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// DecrementStock is a single conditional UPDATE, so two concurrent
// checkouts cannot both take the last unit.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	res := orm.Conn(ctx, r.db).Model(&models.Product{}).
		Where("id = ? AND status = ? AND stock >= ?", id, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return translate("products: decrement stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrConflict
	}
	return nil
}

// ── carts ────────────────────────────────────────────────────────────────────

type CartRepository struct {
	db *gorm.DB
	tx *orm.TxManager
}

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("position asc") }

func (r *CartRepository) Create(ctx context.Context, c *models.Cart) error {
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	err := orm.Conn(ctx, r.db).Omit(clause.Associations).Create(c).Error
	return translate("carts: create", err)
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*models.Cart, error) {
	var c models.Cart
	err := orm.Conn(ctx, r.db).Preload("Items", orderedItems).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, translate("carts: find", err)
	}
	return &c, nil
}

func (r *CartRepository) FindOpen(ctx context.Context, userID, storeID string) (*models.Cart, error) {
	var c models.Cart
	err := orm.Conn(ctx, r.db).Preload("Items", orderedItems).
		Where("user_id = ? AND store_id = ? AND status = ?", userID, storeID, models.CartInProgress).
		First(&c).Error
	if err != nil {
		return nil, translate("carts: find open", err)
	}
	return &c, nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]models.Cart, error) {
	carts := make([]models.Cart, 0)
	err := orm.Conn(ctx, r.db).Preload("Items", orderedItems).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&carts).Error
	return carts, translate("carts: list by user", err)
}

func (r *CartRepository) ListPaidByStore(ctx context.Context, storeID string) ([]models.Cart, error) {
	carts := make([]models.Cart, 0)
	err := orm.Conn(ctx, r.db).Preload("Items", orderedItems).
		Where("store_id = ? AND status = ?", storeID, models.CartPaid).
		Order("paid_at desc").
		Find(&carts).Error
	return carts, translate("carts: list paid", err)
}

// guard resolves why a status-guarded write on cart id matched nothing.
func (r *CartRepository) guard(ctx context.Context, id string) error {
	var c models.Cart
	err := orm.Conn(ctx, r.db).Select("id", "status").Where("id = ?", id).First(&c).Error
	if err != nil {
		return translate("carts: guard", err)
	}
	if !c.InProgress() {
		return repositories.ErrConflict
	}
	return nil
}

func (r *CartRepository) SaveItems(ctx context.Context, c *models.Cart) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.guard(ctx, c.ID); err != nil {
			return err
		}
		conn := orm.Conn(ctx, r.db)
		if err := conn.Where("cart_id = ?", c.ID).Delete(&models.CartItem{}).Error; err != nil {
			return translate("carts: clear items", err)
		}
		if len(c.Items) == 0 {
			return nil
		}
		items := make([]models.CartItem, len(c.Items))
		for i, it := range c.Items {
			items[i] = models.CartItem{CartID: c.ID, ProductID: it.ProductID, Quantity: it.Quantity, Position: i}
		}
		return translate("carts: insert items", conn.Create(&items).Error)
	})
}

func (r *CartRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	res := orm.Conn(ctx, r.db).Model(&models.Cart{}).
		Where("id = ? AND status = ?", id, models.CartInProgress).
		Updates(map[string]any{"status": models.CartPaid, "paid_at": at})
	if res.Error != nil {
		return translate("carts: mark paid", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.guardMiss(ctx, id)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, id string) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		conn := orm.Conn(ctx, r.db)
		res := conn.Where("id = ? AND status = ?", id, models.CartInProgress).Delete(&models.Cart{})
		if res.Error != nil {
			return translate("carts: delete", res.Error)
		}
		if res.RowsAffected == 0 {
			return r.guardMiss(ctx, id)
		}
		return translate("carts: delete items", conn.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error)
	})
}

// guardMiss is guard for a write that already matched nothing: a cart
// that still reads as in progress raced with another writer.
func (r *CartRepository) guardMiss(ctx context.Context, id string) error {
	if err := r.guard(ctx, id); err != nil {
		return err
	}
	return repositories.ErrConflict
}

func (r *CartRepository) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res := orm.Conn(ctx, r.db).
		Where("status = ? AND created_at < ?", models.CartInProgress, before).
		Where("NOT EXISTS (SELECT 1 FROM cart_items WHERE cart_items.cart_id = carts.id)").
		Delete(&models.Cart{})
	if res.Error != nil {
		return 0, translate("carts: delete abandoned", res.Error)
	}
	return res.RowsAffected, nil
}
