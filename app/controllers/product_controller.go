package controllers

import (
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// All is the public catalog: active products of every store.
func (pc *ProductController) All(c *ctx.Context) {
	pc.list(c, repositories.ProductFilter{ActiveOnly: true})
}

// Index shows admins their own store's products, retired ones included,
// and everyone else the active catalog.
func (pc *ProductController) Index(c *ctx.Context) {
	claims := c.Claims()
	if claims.IsAdmin() {
		if claims.Store == "" {
			c.Forbidden("admin is not linked to any store")
			return
		}
		pc.list(c, repositories.ProductFilter{StoreID: claims.Store})
		return
	}
	pc.list(c, repositories.ProductFilter{ActiveOnly: true})
}

func (pc *ProductController) list(c *ctx.Context, f repositories.ProductFilter) {
	f.Category = c.Query("category")
	f.Search = c.Query("search")
	if store := c.Query("store"); store != "" && f.StoreID == "" {
		f.StoreID = store
	}
	products, err := pc.products.List(c.Context(), f)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(products)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.products.Get(c.Context(), c.Param("pid"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(p)
}

func (pc *ProductController) Create(c *ctx.Context) {
	store := c.Claims().Store
	if store == "" {
		c.Forbidden("admin is not linked to any store")
		return
	}
	var in services.CreateProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.products.Create(c.Context(), store, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	var in services.UpdateProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.products.Update(c.Context(), c.Claims().Store, c.Param("pid"), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(p)
}

func (pc *ProductController) Delete(c *ctx.Context) {
	if err := pc.products.Delete(c.Context(), c.Claims().Store, c.Param("pid")); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}

// UploadThumbnail takes a multipart "file" field.
func (pc *ProductController) UploadThumbnail(c *ctx.Context) {
	file, header, ok := c.FormFile("file")
	if !ok {
		return
	}
	defer file.Close()

	p, err := pc.products.AddThumbnail(c.Context(), c.Claims().Store, c.Param("pid"), header.Filename, file)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}
