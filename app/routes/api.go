package routes

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopfront/app/controllers"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
	"github.com/shashiranjanraj/shopfront/pkg/middleware"
	"github.com/shashiranjanraj/shopfront/pkg/rbac"
	"github.com/shashiranjanraj/shopfront/pkg/router"
	"github.com/shashiranjanraj/shopfront/pkg/sse"
	"github.com/shashiranjanraj/shopfront/pkg/storage"
	"github.com/shashiranjanraj/shopfront/pkg/ws"
)

// Deps is everything the route table hands to controllers. Hub, Stream,
// GraphQL and Disk are optional.
type Deps struct {
	Services *services.Services
	Repos    *repositories.Repositories
	Hub      *ws.Hub
	Stream   *sse.Broker
	GraphQL  http.Handler
	Disk     storage.Disk

	// LoginLimit caps login attempts per IP per minute. Zero means 10.
	LoginLimit int
}

func RegisterAPI(r *router.Router, d Deps) {
	if d.Stream == nil {
		d.Stream = sse.NewBroker()
	}
	loginLimit := d.LoginLimit
	if loginLimit <= 0 {
		loginLimit = 10
	}

	authController := controllers.NewAuthController(d.Services.Auth)
	productController := controllers.NewProductController(d.Services.Products)
	storeController := controllers.NewStoreController(d.Services.Stores)
	cartController := controllers.NewCartController(d.Services.Carts, d.Stream)

	var clients func() int
	if d.Hub != nil {
		clients = d.Hub.ClientCount
	}
	healthController := controllers.NewHealthController(d.Repos, clients)

	r.Get("/health", "health", ctx.Wrap(healthController.Health))
	r.Get("/metrics", "metrics", metrics.Handler())
	if d.Hub != nil {
		r.Get("/ws/products", "ws.products", d.Hub.ServeHTTP)
	}
	if d.GraphQL != nil {
		r.Get("/graphql", "graphql.query", d.GraphQL.ServeHTTP)
		r.Post("/graphql", "graphql", d.GraphQL.ServeHTTP)
	}
	if local, ok := d.Disk.(*storage.LocalDisk); ok {
		r.Mount("/storage", "storage", http.StripPrefix("/storage", local.Handler()))
	}

	api := r.Group("/api")
	jwt := api.Group("", middleware.Authenticate)
	admin := api.Group("", middleware.Authenticate, rbac.Admin)

	// auth
	api.Post("/auth/register", "auth.register", ctx.Wrap(authController.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(authController.Login), middleware.RateLimit(loginLimit, time.Minute))
	jwt.Put("/auth/update-profile", "auth.update-profile", ctx.Wrap(authController.UpdateProfile))
	jwt.Get("/auth/profile/{id}", "auth.profile", ctx.Wrap(authController.Profile))
	jwt.Post("/auth/logout", "auth.logout", ctx.Wrap(authController.Logout))
	admin.Get("/auth/users", "auth.users", ctx.Wrap(authController.Users))
	admin.Post("/admin/create-admin", "admin.create-admin", ctx.Wrap(authController.CreateAdmin))

	// products
	api.Get("/products/all", "products.all", ctx.Wrap(productController.All))
	jwt.Get("/products", "products.index", ctx.Wrap(productController.Index))
	api.Get("/products/{pid}", "products.show", ctx.Wrap(productController.Show))
	admin.Post("/products", "products.create", ctx.Wrap(productController.Create))
	admin.Put("/products/{pid}", "products.update", ctx.Wrap(productController.Update))
	admin.Delete("/products/{pid}", "products.delete", ctx.Wrap(productController.Delete))
	admin.Post("/products/{pid}/thumbnails", "products.thumbnails", ctx.Wrap(productController.UploadThumbnail))

	// carts; the static segments go before {cid}
	jwt.Post("/carts", "carts.create", ctx.Wrap(cartController.Create))
	jwt.Get("/carts/history", "carts.history", ctx.Wrap(cartController.History))
	admin.Get("/carts/paid", "carts.paid", ctx.Wrap(cartController.Paid))
	admin.Get("/carts/paid/stream", "carts.paid.stream", ctx.Wrap(cartController.PaidStream))
	jwt.Get("/carts/{cid}", "carts.show", ctx.Wrap(cartController.Show))
	jwt.Post("/carts/{cid}/product/{pid}", "carts.product.add", ctx.Wrap(cartController.AddProduct))
	jwt.Delete("/carts/{cid}/product/{pid}", "carts.product.remove", ctx.Wrap(cartController.RemoveProduct))
	jwt.Put("/carts/{cid}/product/{pid}", "carts.product.quantity", ctx.Wrap(cartController.UpdateQuantity))
	jwt.Delete("/carts/{cid}", "carts.delete", ctx.Wrap(cartController.Delete))
	jwt.Post("/carts/{cid}/pay", "carts.pay", ctx.Wrap(cartController.Pay))
	jwt.Get("/carts/{cid}/whatsapp", "carts.whatsapp", ctx.Wrap(cartController.WhatsApp))

	// stores
	api.Get("/store/all", "stores.all", ctx.Wrap(storeController.All))
	api.Post("/store/register", "stores.register", ctx.Wrap(storeController.Register))
	api.Get("/store/{id}", "stores.show", ctx.Wrap(storeController.Show))
	jwt.Put("/store/{id}", "stores.update", ctx.Wrap(storeController.Update))
}
