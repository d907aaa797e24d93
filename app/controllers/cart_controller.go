package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/shopfront/app/events"
	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/resources"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
	"github.com/shashiranjanraj/shopfront/pkg/sse"
)

type CartController struct {
	carts  *services.CartService
	stream *sse.Broker
}

func NewCartController(carts *services.CartService, stream *sse.Broker) *CartController {
	return &CartController{carts: carts, stream: stream}
}

type createCartRequest struct {
	StoreID string `json:"storeId"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=1"`
}

func (cc *CartController) Create(c *ctx.Context) {
	var in createCartRequest
	if !c.BindJSON(&in) {
		return
	}
	cart, err := cc.carts.CreateCart(c.Context(), c.Claims().UserID, in.StoreID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(resources.NewCart(cart, nil))
}

// History lists the caller's carts, newest first.
func (cc *CartController) History(c *ctx.Context) {
	carts, err := cc.carts.History(c.Context(), c.Claims().UserID)
	if err != nil {
		c.Fail(err)
		return
	}
	cc.renderList(c, carts)
}

// Paid lists the paid carts of the admin's store.
func (cc *CartController) Paid(c *ctx.Context) {
	carts, err := cc.carts.PaidForStore(c.Context(), c.Claims().Store)
	if err != nil {
		c.Fail(err)
		return
	}
	cc.renderList(c, carts)
}

// PaidStream pushes the admin's store checkouts as they happen.
func (cc *CartController) PaidStream(c *ctx.Context) {
	store := c.Claims().Store
	if store == "" {
		c.Forbidden("admin is not linked to any store")
		return
	}
	cc.stream.Serve(c.W, c.R, events.StoreTopic(store))
}

func (cc *CartController) Show(c *ctx.Context) {
	cart, ok := cc.authorize(c, true)
	if !ok {
		return
	}
	cc.render(c, http.StatusOK, cart, nil)
}

func (cc *CartController) AddProduct(c *ctx.Context) {
	if _, ok := cc.authorize(c, false); !ok {
		return
	}
	cart, err := cc.carts.AddProduct(c.Context(), c.Param("cid"), c.Param("pid"))
	if err != nil {
		c.Fail(err)
		return
	}
	cc.render(c, http.StatusOK, cart, nil)
}

func (cc *CartController) RemoveProduct(c *ctx.Context) {
	if _, ok := cc.authorize(c, false); !ok {
		return
	}
	res, err := cc.carts.RemoveProduct(c.Context(), c.Param("cid"), c.Param("pid"))
	if err != nil {
		c.Fail(err)
		return
	}
	if res.Deleted {
		c.OK(map[string]any{"message": "product removed, cart deleted because it was empty", "deleted": true})
		return
	}
	cc.render(c, http.StatusOK, res.Cart, map[string]any{"message": "product removed from cart", "deleted": false})
}

func (cc *CartController) UpdateQuantity(c *ctx.Context) {
	if _, ok := cc.authorize(c, false); !ok {
		return
	}
	var in quantityRequest
	if !c.BindJSON(&in) {
		return
	}
	cart, err := cc.carts.UpdateQuantity(c.Context(), c.Param("cid"), c.Param("pid"), *in.Quantity)
	if err != nil {
		c.Fail(err)
		return
	}
	cc.render(c, http.StatusOK, cart, nil)
}

func (cc *CartController) Delete(c *ctx.Context) {
	if _, ok := cc.authorize(c, false); !ok {
		return
	}
	if err := cc.carts.DeleteCart(c.Context(), c.Param("cid")); err != nil {
		c.Fail(err)
		return
	}
	c.Message("cart deleted successfully")
}

func (cc *CartController) Pay(c *ctx.Context) {
	if _, ok := cc.authorize(c, true); !ok {
		return
	}
	cart, err := cc.carts.PayCart(c.Context(), c.Param("cid"))
	if err != nil {
		c.Fail(err)
		return
	}
	cc.render(c, http.StatusOK, cart, map[string]any{"message": "cart paid successfully"})
}

// WhatsApp returns the wa.me link that hands the order to the store.
func (cc *CartController) WhatsApp(c *ctx.Context) {
	if _, ok := cc.authorize(c, true); !ok {
		return
	}
	link, err := cc.carts.WhatsAppLink(c.Context(), c.Param("cid"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]string{"url": link})
}

// authorize loads the cart and checks the caller owns it, or is an admin
// when admins are allowed.
func (cc *CartController) authorize(c *ctx.Context, admins bool) (*models.Cart, bool) {
	cart, err := cc.carts.GetCart(c.Context(), c.Param("cid"))
	if err != nil {
		c.Fail(err)
		return nil, false
	}
	claims := c.Claims()
	if cart.UserID == claims.UserID || (admins && claims.IsAdmin()) {
		return cart, true
	}
	c.Forbidden("access denied")
	return nil, false
}

// render writes the populated cart. With extra, the cart goes under
// "cart" next to the extra keys.
func (cc *CartController) render(c *ctx.Context, status int, cart *models.Cart, extra map[string]any) {
	products, err := cc.carts.Products(c.Context(), *cart)
	if err != nil {
		c.Fail(err)
		return
	}
	view := resources.NewCart(cart, products)
	if extra == nil {
		c.JSON(status, view)
		return
	}
	extra["cart"] = view
	c.JSON(status, extra)
}

func (cc *CartController) renderList(c *ctx.Context, carts []models.Cart) {
	products, err := cc.carts.Products(c.Context(), carts...)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(resources.Carts(carts, products))
}
