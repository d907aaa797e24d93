// Command shopfront runs the storefront API and its maintenance tasks.
//
//	shopfront serve
//	shopfront migrate
//	shopfront db:seed
//	shopfront admin:create --store "Corner Shop" --email owner@corner.test ...
//	shopfront queue:work --workers 4
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopfront/pkg/app"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "shopfront",
	Short:         "Multi-tenant storefront API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateFreshCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCreateCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleRunCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// withApp boots the application, runs fn and closes it again.
func withApp(ctx context.Context, fn func(a *app.Application) error) error {
	a, err := app.Boot(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(a)
}
