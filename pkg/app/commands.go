package app

// Implementations behind the cmd/shopfront sub-commands. Each writes its
// human-readable output to out so the CLI and tests share them.

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/database/seeders"
	"github.com/shashiranjanraj/shopfront/pkg/router"
)

// PrintRoutes writes the route table as an aligned listing.
func PrintRoutes(out io.Writer, r *router.Router) {
	routes := r.Routes()
	if len(routes) == 0 {
		fmt.Fprintln(out, "No routes registered.")
		return
	}
	fmt.Fprintf(out, "%-8s  %-40s  %s\n", "METHOD", "PATH", "NAME")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, ri := range routes {
		fmt.Fprintf(out, "%-8s  %-40s  %s\n", ri.Method, ri.Path, ri.Name)
	}
}

// Seed runs every registered seeder against the booted backend.
func (a *Application) Seed(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "Running seeders…")
	if err := seeders.RunAll(ctx, a.Services, out); err != nil {
		return err
	}
	fmt.Fprintf(out, "Demo admin: %s / %s\n", seeders.DemoAdminEmail, seeders.DemoAdminPassword)
	return nil
}

// CreateAdmin registers a store together with its first admin.
func (a *Application) CreateAdmin(ctx context.Context, in services.RegisterStoreInput, out io.Writer) error {
	reg, err := a.Services.Stores.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Store %q created (id %s)\n", reg.Store.StoreName, reg.Store.ID)
	fmt.Fprintf(out, "Admin %s created (id %s)\n", reg.Admin.Email, reg.Admin.ID)
	return nil
}

// Work consumes the job queue with n workers until ctx is done. The
// in-memory queue only sees jobs dispatched by this process, so a separate
// worker is only useful with QUEUE_DRIVER=redis.
func (a *Application) Work(ctx context.Context, n int, out io.Writer) error {
	if config.QueueDriver() != "redis" {
		return fmt.Errorf("queue:work needs QUEUE_DRIVER=redis; the %q queue is drained by serve", config.QueueDriver())
	}
	if n < 1 {
		n = config.QueueWorkers()
	}
	fmt.Fprintf(out, "Queue worker started (%d workers). Press Ctrl+C to stop.\n", n)
	a.Queue.StartWorkers(ctx, n)
	<-ctx.Done()
	a.Queue.Wait()
	fmt.Fprintln(out, "Queue worker stopped.")
	return nil
}

// RunSchedule lists the scheduled tasks, then runs them until ctx is done.
// With once set it runs every task a single time and returns.
func (a *Application) RunSchedule(ctx context.Context, once bool, out io.Writer) error {
	entries := a.Scheduler.Entries()
	fmt.Fprintln(out, "Registered scheduled tasks:")
	for _, e := range entries {
		fmt.Fprintf(out, "  • %-28s every %s\n", e.Name(), e.Interval())
	}

	if once {
		for _, e := range entries {
			if err := a.Scheduler.RunNow(ctx, e.Name()); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
		}
		return nil
	}

	fmt.Fprintln(out, "Scheduler started. Press Ctrl+C to stop.")
	a.Scheduler.Run(ctx)
	a.Scheduler.Wait()
	fmt.Fprintln(out, "Scheduler stopped.")
	return nil
}
