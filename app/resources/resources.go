// Package resources shapes models into the JSON the API returns. Carts
// are "populated": each line carries a snapshot of its product and the
// priced totals, so clients never have to fetch products one by one.
package resources

import (
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/pkg/collection"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the part of a product shown inside a cart line.
type ProductSnapshot struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Code       string       `json:"code"`
	Price      models.Money `json:"price"`
	Thumbnails []string     `json:"thumbnails"`
	Stock      int          `json:"stock"`
	Status     bool         `json:"status"`
}

// CartLine is one populated line item. Product is null when the product
// no longer exists.
type CartLine struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *ProductSnapshot `json:"product"`
	LineTotal models.Money     `json:"lineTotal"`
}

type Cart struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	StoreID   string       `json:"storeId"`
	Status    string       `json:"status"`
	Products  []CartLine   `json:"products"`
	Units     int          `json:"units"`
	Total     models.Money `json:"total"`
	CreatedAt time.Time    `json:"createdAt"`
	PaidAt    *time.Time   `json:"paidAt"`
}

// NewCart populates c from products, keyed by product ID.
func NewCart(c *models.Cart, products map[string]models.Product) Cart {
	lines := collection.Map(c.Items, func(it models.CartItem) CartLine {
		line := CartLine{ProductID: it.ProductID, Quantity: it.Quantity, LineTotal: models.NewMoney(decimal.Zero)}
		if p, ok := products[it.ProductID]; ok {
			line.Product = Snapshot(p)
			line.LineTotal = models.NewMoney(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		return line
	})
	return Cart{
		ID:        c.ID,
		UserID:    c.UserID,
		StoreID:   c.StoreID,
		Status:    c.Status,
		Products:  lines,
		Units:     c.Units(),
		Total:     models.NewMoney(c.Total(products)),
		CreatedAt: c.CreatedAt,
		PaidAt:    c.PaidAt,
	}
}

// Carts populates a list of carts sharing one product map.
func Carts(list []models.Cart, products map[string]models.Product) []Cart {
	return collection.Map(list, func(c models.Cart) Cart { return NewCart(&c, products) })
}

func Snapshot(p models.Product) *ProductSnapshot {
	thumbs := p.Thumbnails
	if thumbs == nil {
		thumbs = []string{}
	}
	return &ProductSnapshot{
		ID:         p.ID,
		Title:      p.Title,
		Code:       p.Code,
		Price:      models.NewMoney(p.Price),
		Thumbnails: thumbs,
		Stock:      p.Stock,
		Status:     p.Status,
	}
}

// StoreDetail is the body of GET /api/store/{id}.
type StoreDetail struct {
	Store    *models.StoreWithOwner `json:"store"`
	Products []models.Product       `json:"products"`
}
