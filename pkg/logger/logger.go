// Package logger provides the process-wide structured logger built on
// log/slog.
//
// Handlers pull a request-scoped logger from the context so every line is
// correlated with the request that produced it:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("cart paid", "cart_id", cart.ID, "units", units)
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/shopfront/config"
)

var L *slog.Logger

func init() {
	L = slog.New(stdoutHandler())
	slog.SetDefault(L)
}

func stdoutHandler() slog.Handler {
	switch config.AppEnv() {
	case "production", "prod":
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case "testing":
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
	default:
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// Setup attaches the optional MongoDB sink configured by LOG_MONGO_URI.
// The returned func flushes and disconnects it; it is never nil.
func Setup() (func(), error) {
	uri := config.Get("LOG_MONGO_URI", "")
	if uri == "" {
		return func() {}, nil
	}

	mh, err := NewMongoHandler(uri,
		config.Get("LOG_MONGO_DB", config.MongoDatabase()),
		config.Get("LOG_MONGO_COLLECTION", "logs"),
	)
	if err != nil {
		return func() {}, err
	}

	L = slog.New(NewMultiHandler(stdoutHandler(), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the request logger stored by the Logger middleware, or the
// base logger outside a request.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
