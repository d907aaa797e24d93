// Package orm carries gorm transactions through context.Context so that
// repositories can join a transaction opened by a service.
//
//	tx := orm.NewTxManager(db)
//	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
//	    return orm.Conn(ctx, db).Create(&row).Error
//	})
package orm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type txKey struct{}

// Conn returns the transaction stored in ctx, or db bound to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// TxManager opens gorm transactions.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
// A ctx that already carries a transaction is reused as is.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// IsNotFound reports gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate recognises unique-constraint violations from every
// supported driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"unique constraint failed",    // sqlite
		"duplicate key value",         // postgres
		"duplicate entry",             // mysql
		"cannot insert duplicate key", // sqlserver
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
