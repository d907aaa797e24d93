// Package graphql exposes the public catalog as a read-only GraphQL schema.
//
//	{ stores { id storeName products { title price stock } } }
package graphql

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	pkggraphql "github.com/shashiranjanraj/shopfront/pkg/graphql"
)

// Catalog resolves queries through the product and store services, so
// listings share their cache.
type Catalog struct {
	products *services.ProductService
	stores   *services.StoreService
}

func NewCatalog(products *services.ProductService, stores *services.StoreService) *Catalog {
	return &Catalog{products: products, stores: stores}
}

var ownerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Owner",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.String},
		"firstName": &graphql.Field{Type: graphql.String},
		"lastName":  &graphql.Field{Type: graphql.String},
		"email":     &graphql.Field{Type: graphql.String},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"title":       &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"code":        &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"stock":       &graphql.Field{Type: graphql.Int},
		"status":      &graphql.Field{Type: graphql.Boolean},
		"storeId":     &graphql.Field{Type: graphql.String},
		"thumbnails":  &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

// Schema builds the query root.
func (c *Catalog) Schema() (graphql.Schema, error) {
	storeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Store",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"storeName": &graphql.Field{Type: graphql.String},
			"address":   &graphql.Field{Type: graphql.String},
			"whatsapp":  &graphql.Field{Type: graphql.String},
			"owner":     &graphql.Field{Type: ownerType},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					src, _ := p.Source.(map[string]interface{})
					id, _ := src["id"].(string)
					list, err := c.products.List(p.Context, repositories.ProductFilter{StoreID: id, ActiveOnly: true})
					if err != nil {
						return nil, err
					}
					return productViews(list), nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type:        graphql.NewList(productType),
				Description: "Active products, optionally filtered.",
				Args: graphql.FieldConfigArgument{
					"store":    &graphql.ArgumentConfig{Type: graphql.String},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := repositories.ProductFilter{ActiveOnly: true}
					f.StoreID, _ = p.Args["store"].(string)
					f.Category, _ = p.Args["category"].(string)
					f.Search, _ = p.Args["search"].(string)
					list, err := c.products.List(p.Context, f)
					if err != nil {
						return nil, err
					}
					return productViews(list), nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					prod, err := c.products.Get(p.Context, id)
					if err != nil {
						return absent(err)
					}
					return productView(*prod), nil
				},
			},
			"stores": &graphql.Field{
				Type: graphql.NewList(storeType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					list, err := c.stores.All(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(list))
					for i := range list {
						out[i] = storeView(&list[i])
					}
					return out, nil
				},
			},
			"store": &graphql.Field{
				Type: storeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					s, _, err := c.stores.Show(p.Context, id)
					if err != nil {
						return absent(err)
					}
					return storeView(s), nil
				},
			},
		},
	})

	return pkggraphql.NewSchema(query)
}

// absent turns a 404 into a null field; other errors surface.
func absent(err error) (interface{}, error) {
	if apperr.StatusOf(err) == http.StatusNotFound {
		return nil, nil
	}
	return nil, err
}

func productView(p models.Product) map[string]interface{} {
	thumbs := p.Thumbnails
	if thumbs == nil {
		thumbs = []string{}
	}
	return map[string]interface{}{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
		"code":        p.Code,
		"category":    p.Category,
		"price":       p.Price.InexactFloat64(),
		"stock":       p.Stock,
		"status":      p.Status,
		"storeId":     p.StoreID,
		"thumbnails":  thumbs,
	}
}

func productViews(list []models.Product) []map[string]interface{} {
	out := make([]map[string]interface{}, len(list))
	for i, p := range list {
		out[i] = productView(p)
	}
	return out
}

func storeView(s *models.StoreWithOwner) map[string]interface{} {
	view := map[string]interface{}{
		"id":        s.ID,
		"storeName": s.StoreName,
		"address":   s.Address,
		"whatsapp":  s.WhatsApp,
	}
	if s.Owner != nil {
		view["owner"] = map[string]interface{}{
			"id":        s.Owner.ID,
			"firstName": s.Owner.FirstName,
			"lastName":  s.Owner.LastName,
			"email":     s.Owner.Email,
		}
	}
	return view
}
