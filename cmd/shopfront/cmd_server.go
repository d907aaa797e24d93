package main

import (
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopfront/pkg/app"
)

// shopfront serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

// shopfront route:list
var routeListCmd = &cobra.Command{
	Use:     "route:list",
	Aliases: []string{"routes"},
	Short:   "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.Application) error {
			app.PrintRoutes(cmd.OutOrStdout(), a.Router())
			return nil
		})
	},
}
