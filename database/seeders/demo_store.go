package seeders

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
)

// Demo credentials printed by db:seed.
const (
	DemoAdminEmail    = "admin@demo.shopfront.test"
	DemoAdminPassword = "secret123"
)

func init() {
	Register("demo-store", seedDemoStore)
}

type demoProduct struct {
	title, code, category, price string
	stock                        int
}

var demoCatalog = []demoProduct{
	{"Ceramic Mug", "DEMO-MUG", "kitchen", "12.50", 40},
	{"Cotton Tote", "DEMO-TOTE", "bags", "18.00", 25},
	{"Notebook A5", "DEMO-NB-A5", "stationery", "6.75", 100},
	{"Enamel Pin", "DEMO-PIN", "accessories", "4.00", 0},
}

// seedDemoStore creates one store, its admin and a small catalog. Running
// it twice is a no-op: the admin email already exists.
func seedDemoStore(ctx context.Context, svc *services.Services) error {
	reg, err := svc.Stores.Register(ctx, services.RegisterStoreInput{
		StoreName: "Demo Store",
		Address:   "1 Market Street",
		WhatsApp:  "+5491155551234",
		Email:     DemoAdminEmail,
		FirstName: "Demo",
		LastName:  "Admin",
		Password:  DemoAdminPassword,
	})
	if apperr.StatusOf(err) == http.StatusConflict {
		return nil
	}
	if err != nil {
		return err
	}

	active := true
	for _, p := range demoCatalog {
		price := decimal.RequireFromString(p.price)
		stock := p.stock
		_, err := svc.Products.Create(ctx, reg.Store.ID, services.CreateProductInput{
			Title:       p.title,
			Description: p.title + " from the demo catalog",
			Code:        p.code,
			Price:       &price,
			Status:      &active,
			Stock:       &stock,
			Category:    p.category,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
