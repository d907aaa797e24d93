package app

import (
	"context"
	"time"

	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/internal/server"
	"github.com/shashiranjanraj/shopfront/pkg/grpc"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

// Serve runs the HTTP API, the gRPC health server, the realtime hub, the
// in-process queue workers and the scheduler until ctx is done, then stops
// them in reverse order.
func (a *Application) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.Hub.Run(runCtx)

	if n := config.QueueWorkers(); n > 0 {
		a.Queue.StartWorkers(runCtx, n)
	}
	if config.Get("SCHEDULER_ENABLED", "true") == "true" {
		go a.Scheduler.Run(runCtx)
	}

	grpcSrv, err := grpc.Start(runCtx, config.GRPCPort(), a.Repos.Healthy)
	if err != nil {
		logger.Warn("gRPC server not started", "error", err)
	}

	err = server.Run(ctx, server.Options{
		Addr:            ":" + config.AppPort(),
		Handler:         a.Handler(),
		ShutdownTimeout: config.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
	})

	grpcSrv.Stop()
	cancel()
	a.Queue.Wait()
	a.Scheduler.Wait()
	logger.Info("shutdown complete")
	return err
}
