package controllers

import (
	"github.com/shashiranjanraj/shopfront/app/resources"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
)

type StoreController struct {
	stores *services.StoreService
}

func NewStoreController(stores *services.StoreService) *StoreController {
	return &StoreController{stores: stores}
}

func (sc *StoreController) All(c *ctx.Context) {
	stores, err := sc.stores.All(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(stores)
}

// Register creates a store and its first admin in one go.
func (sc *StoreController) Register(c *ctx.Context) {
	var in services.RegisterStoreInput
	if !c.BindJSON(&in) {
		return
	}
	reg, err := sc.stores.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(map[string]any{
		"message":   "store and admin created successfully",
		"store":     reg.Store,
		"adminUser": reg.Admin,
	})
}

func (sc *StoreController) Show(c *ctx.Context) {
	store, products, err := sc.stores.Show(c.Context(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(resources.StoreDetail{Store: store, Products: products})
}

func (sc *StoreController) Update(c *ctx.Context) {
	var in services.UpdateStoreInput
	if !c.BindJSON(&in) {
		return
	}
	store, err := sc.stores.Update(c.Context(), c.Claims(), c.Param("id"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]any{"message": "store updated successfully", "store": store})
}
