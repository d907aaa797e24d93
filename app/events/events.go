// Package events defines the domain events published on pkg/event.
package events

import (
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
)

const (
	CartPaidName       = "cart.paid"
	ProductChangedName = "product.changed"
)

// CartPaid fires after a checkout commits.
type CartPaid struct {
	CartID  string       `json:"cartId"`
	UserID  string       `json:"userId"`
	StoreID string       `json:"storeId"`
	Items   []PaidLine   `json:"items"`
	Total   models.Money `json:"total"`
	PaidAt  time.Time    `json:"paidAt"`
}

// PaidLine is one line of a paid cart, priced at checkout time.
type PaidLine struct {
	ProductID string       `json:"productId"`
	Title     string       `json:"title"`
	Code      string       `json:"code"`
	Quantity  int          `json:"quantity"`
	Price     models.Money `json:"price"`
}

func (CartPaid) EventName() string { return CartPaidName }

// Product change actions.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductDeleted = "deleted"
	ProductStock   = "stock"
)

// ProductChanged fires after any product write, including stock taken by
// a checkout.
type ProductChanged struct {
	Action  string         `json:"action"`
	Product models.Product `json:"product"`
}

func (ProductChanged) EventName() string { return ProductChangedName }

// StoreTopic is the realtime topic carrying one store's paid carts.
func StoreTopic(storeID string) string { return "store:" + storeID }
