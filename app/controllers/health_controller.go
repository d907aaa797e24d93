package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/cache"
	"github.com/shashiranjanraj/shopfront/pkg/ctx"
)

type HealthController struct {
	repos   *repositories.Repositories
	clients func() int
}

// NewHealthController reports on repos. clients, when set, returns the
// number of connected realtime clients.
func NewHealthController(repos *repositories.Repositories, clients func() int) *HealthController {
	return &HealthController{repos: repos, clients: clients}
}

type healthReport struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Realtime int    `json:"realtimeClients"`
}

// Health answers 200 while the database responds and 503 otherwise. Redis
// is reported but never fails the check since the cache degrades to misses.
func (hc *HealthController) Health(c *ctx.Context) {
	pingCtx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{Status: "ok", Database: "up", Redis: "disabled"}
	if err := hc.repos.Healthy(pingCtx); err != nil {
		c.Log().Warn("health: database down", "error", err)
		report.Status, report.Database = "degraded", "down"
	}
	if cache.Available() {
		report.Redis = "up"
		if err := cache.RDB.Ping(pingCtx).Err(); err != nil {
			report.Redis = "down"
		}
	}
	if hc.clients != nil {
		report.Realtime = hc.clients()
	}

	status := http.StatusOK
	if report.Database != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
