package migrations

import (
	"fmt"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/pkg/migration"
	"github.com/shashiranjanraj/shopfront/pkg/queue"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
	migration.Register("20260101000001_create_stores_table", &CreateStoresTable{})
	migration.Register("20260101000002_create_products_table", &CreateProductsTable{})
	migration.Register("20260101000003_create_carts_tables", &CreateCartsTables{})
	migration.Register("20260101000004_create_failed_jobs_table", &CreateFailedJobsTable{})
}

// -------- 0001: users --------

type CreateUsersTable struct{}

func (m *CreateUsersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{})
}

func (m *CreateUsersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("users")
}

// -------- 0002: stores --------

type CreateStoresTable struct{}

func (m *CreateStoresTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Store{})
}

func (m *CreateStoresTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("stores")
}

// -------- 0003: products --------

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Product{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("products")
}

// -------- 0004: carts + cart_items --------

// CreateCartsTables also adds the partial unique index that allows one
// in-progress cart per user and store. MySQL has no partial indexes; there
// the check inside CartService.CreateCart's transaction is the only guard.
type CreateCartsTables struct{}

func (m *CreateCartsTables) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Cart{}, &models.CartItem{}); err != nil {
		return err
	}
	stmt := openCartIndex(db.Dialector.Name())
	if stmt == "" {
		return nil
	}
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create idx_carts_one_open: %w", err)
	}
	return nil
}

func (m *CreateCartsTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("cart_items", "carts")
}

func openCartIndex(dialect string) string {
	switch dialect {
	case "sqlite", "postgres":
		return "CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_one_open ON carts (user_id, store_id) WHERE status = 'in_progress'"
	case "sqlserver":
		return "CREATE UNIQUE INDEX idx_carts_one_open ON carts (user_id, store_id) WHERE status = 'in_progress'"
	default:
		return ""
	}
}

// -------- 0005: failed_jobs --------

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&queue.FailedJobRecord{})
}
