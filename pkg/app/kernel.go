package app

import (
	"net/http"

	"github.com/shashiranjanraj/shopfront/app/routes"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
	"github.com/shashiranjanraj/shopfront/pkg/middleware"
	"github.com/shashiranjanraj/shopfront/pkg/reqid"
	"github.com/shashiranjanraj/shopfront/pkg/router"
)

// Router builds the full route table with the global middleware stack.
func (a *Application) Router() *router.Router {
	r := router.New()

	// Outermost first: metrics see total latency, recovery guards
	// everything below it, and the request id exists before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.CORSOrigins())))

	routes.RegisterAPI(r, routes.Deps{
		Services:   a.Services,
		Repos:      a.Repos,
		Hub:        a.Hub,
		Stream:     a.Stream,
		GraphQL:    a.GraphQL,
		Disk:       a.Disk,
		LoginLimit: config.Int("LOGIN_RATE_LIMIT", 10),
	})
	routes.RegisterFallback(r, config.StaticDir())
	return r
}

// Handler is Router().Handler().
func (a *Application) Handler() http.Handler {
	return a.Router().Handler()
}
