package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product belongs to exactly one store. Deleting a product only flips
// Status to false and zeroes Stock, so paid carts keep resolving it.
type Product struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Code        string          `gorm:"uniqueIndex;size:100;not null" json:"code"`
	Category    string          `gorm:"size:100;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Thumbnails  []string        `gorm:"serializer:json;type:text" json:"thumbnails"`
	Status      bool            `gorm:"not null;default:true;index" json:"status"`
	StoreID     string          `gorm:"size:36;not null;index" json:"storeId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Available reports whether qty units could be sold right now.
func (p *Product) Available(qty int) bool {
	return p.Status && qty <= p.Stock
}

// MarshalJSON renders Price as a JSON number.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Price Money `json:"price"`
	}{plain(p), NewMoney(p.Price)})
}
