// Package ctx provides the request context handed to shopfront controllers.
//
// A handler receives a single *Context instead of (w, r):
//
//	func (pc *ProductController) Show(c *ctx.Context) {
//	    p, err := pc.products.Get(c.Context(), c.Param("pid"))
//	    if err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.OK(p)
//	}
//
//	api.Get("/products/{pid}", "products.show", ctx.Wrap(pc.Show))
package ctx

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shashiranjanraj/shopfront/pkg/auth"
	"github.com/shashiranjanraj/shopfront/pkg/bind"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/response"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request ─────────────────────────────────────────────────────────────────

// Param returns a URL path parameter ("/carts/{cid}" → c.Param("cid")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value, or "" when absent.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryBool reads "1", "true" and friends; anything else is def.
func (c *Context) QueryBool(key string, def bool) bool {
	b, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return def
	}
	return b
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ClientIP returns the caller IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// Claims returns the authenticated caller. It is nil on public routes.
func (c *Context) Claims() *auth.Claims {
	claims, _ := auth.FromContext(c.R.Context())
	return claims
}

// ─── Binding ─────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body into dest. On failure the error
// response is already written and false is returned.
//
//	var in services.RegisterInput
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	if err := bind.JSON(c.R, dest); err != nil {
		c.Fail(err)
		return false
	}
	return true
}

// FormFile reads an uploaded file field, writing the error response on failure.
func (c *Context) FormFile(field string) (multipart.File, *multipart.FileHeader, bool) {
	f, h, err := bind.File(c.R, field)
	if err != nil {
		c.Fail(err)
		return nil, nil, false
	}
	return f, h, true
}

// ─── Response ────────────────────────────────────────────────────────────────

func (c *Context) JSON(code int, v any) {
	c.status = code
	response.JSON(c.W, code, v)
}

func (c *Context) OK(v any)      { c.JSON(http.StatusOK, v) }
func (c *Context) Created(v any) { c.JSON(http.StatusCreated, v) }

// Message sends {"message": msg} with a 200.
func (c *Context) Message(msg string) {
	c.JSON(http.StatusOK, response.Message{Message: msg})
}

func (c *Context) NoContent() {
	c.status = http.StatusNoContent
	response.NoContent(c.W)
}

// Error sends {"error": message}.
func (c *Context) Error(code int, message string) {
	c.JSON(code, response.ErrorBody{Error: message})
}

// Fail renders err through response.Fail.
func (c *Context) Fail(err error) {
	response.Fail(&statusWriter{ResponseWriter: c.W, c: c}, c.R, err)
}

func (c *Context) Forbidden(message string) { c.Error(http.StatusForbidden, message) }

// WrittenStatus returns the status written so far, 0 before any write.
func (c *Context) WrittenStatus() int { return c.status }

type statusWriter struct {
	http.ResponseWriter
	c *Context
}

func (s *statusWriter) WriteHeader(code int) {
	s.c.status = code
	s.ResponseWriter.WriteHeader(code)
}
