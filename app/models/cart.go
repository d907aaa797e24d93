package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CartInProgress = "in_progress"
	CartPaid       = "paid"
)

// Cart is one shopper's pending order at one store. At most one cart per
// (UserID, StoreID) is in progress at a time.
type Cart struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"size:36;not null;index" json:"userId"`
	StoreID   string     `gorm:"size:36;not null;index" json:"storeId"`
	Status    string     `gorm:"size:20;not null;default:in_progress;index" json:"status"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"products"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	PaidAt    *time.Time `json:"paidAt"`
}

// CartItem is a line item. The (CartID, ProductID) pair is the key.
type CartItem struct {
	CartID    string `gorm:"primaryKey;size:36" json:"-"`
	ProductID string `gorm:"primaryKey;size:36" json:"productId"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	Position  int    `gorm:"not null;default:0" json:"-"`
}

func (c *Cart) InProgress() bool { return c.Status == CartInProgress }

// Item returns the line for productID, or nil.
func (c *Cart) Item(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the line for productID and reports whether it existed.
func (c *Cart) RemoveItem(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ProductIDs lists the products referenced by the cart, in line order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	return ids
}

// Units is the total quantity across all lines.
func (c *Cart) Units() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Total prices the cart against products, keyed by ID. Lines whose product
// is missing count as zero.
func (c *Cart) Total(products map[string]Product) decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		if p, ok := products[it.ProductID]; ok {
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return total
}
