package models_test

import (
	"testing"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartLines(t *testing.T) {
	c := &models.Cart{Items: []models.CartItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}}

	assert.Equal(t, 3, c.Units())
	assert.Equal(t, []string{"p1", "p2"}, c.ProductIDs())
	assert.NotNil(t, c.Item("p2"))

	assert.True(t, c.RemoveItem("p1"))
	assert.False(t, c.RemoveItem("p1"))
	assert.Nil(t, c.Item("p1"))
	assert.Len(t, c.Items, 1)
}

func TestCartTotal(t *testing.T) {
	c := &models.Cart{Items: []models.CartItem{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "gone", Quantity: 5},
	}}
	products := map[string]models.Product{
		"p1": {ID: "p1", Price: decimal.RequireFromString("19.99")},
	}

	assert.Equal(t, "59.97", c.Total(products).StringFixed(2))
}

func TestProductAvailable(t *testing.T) {
	p := models.Product{Status: true, Stock: 2}
	assert.True(t, p.Available(2))
	assert.False(t, p.Available(3))

	p.Status = false
	assert.False(t, p.Available(1))
}
