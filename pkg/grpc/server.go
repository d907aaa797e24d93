// Package grpc runs the gRPC side of shopfront: the standard health
// service (grpc.health.v1.Health), tied to database liveness, plus
// reflection so grpcurl works without protos.
//
// Every unary call goes through panic recovery, access logging and
// Prometheus interceptors.
//
//	srv, err := grpc.Start(ctx, config.GRPCPort(), repos.Healthy)
//	...
//	srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Checker reports whether the service can do its job.
type Checker func(ctx context.Context) error

// ServiceName is the health entry that tracks the storefront backend. The
// empty name reports the same status for clients that ask generically.
const ServiceName = "shopfront"

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// observeInterceptor logs the call and records its metrics.
func observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	metrics.GRPCHandled.WithLabelValues(info.FullMethod, code.String()).Inc()
	metrics.GRPCDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	logger.Debug("grpc: request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", code.String(),
	)
	return resp, err
}

type Server struct {
	srv      *grpc.Server
	health   *health.Server
	lis      net.Listener
	check    Checker
	interval time.Duration
}

// Start listens on port ("0" picks a free one) and serves in the
// background. The health status is refreshed from check every 10s until
// ctx is done; a nil check always reports SERVING.
func Start(ctx context.Context, port string, check Checker) (*Server, error) {
	addr := ":" + port
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on %s: %w", addr, err)
	}

	s := &Server{
		srv: grpc.NewServer(
			grpc.ChainUnaryInterceptor(recoveryInterceptor, observeInterceptor),
			grpc.MaxRecvMsgSize(4<<20),
			grpc.MaxSendMsgSize(4<<20),
		),
		health:   health.NewServer(),
		lis:      lis,
		check:    check,
		interval: 10 * time.Second,
	}
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.Refresh(ctx)

	go func() {
		if err := s.srv.Serve(lis); err != nil {
			logger.Error("grpc: serve", "error", err)
		}
	}()
	go s.watch(ctx)

	logger.Info("gRPC server started", "addr", lis.Addr().String())
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.lis.Addr().String() }

// Refresh runs the checker once and publishes the result.
func (s *Server) Refresh(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.check != nil {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := s.check(cctx)
		cancel()
		if err != nil {
			logger.Warn("grpc: health check failing", "error", err)
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

// Stop marks the server NOT_SERVING and waits for in-flight RPCs.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.srv.GracefulStop()
}
