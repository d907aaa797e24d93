package main

import (
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/shopfront/pkg/app"
)

var (
	queueWorkersFlag int
	scheduleOnceFlag bool
)

// shopfront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Consume the Redis job queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.Application) error {
			return a.Work(ctx, queueWorkersFlag, cmd.OutOrStdout())
		})
	},
}

// shopfront schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withApp(ctx, func(a *app.Application) error {
			return a.RunSchedule(ctx, scheduleOnceFlag, cmd.OutOrStdout())
		})
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
	scheduleRunCmd.Flags().BoolVar(&scheduleOnceFlag, "once", false, "Run every task once and exit")
}
