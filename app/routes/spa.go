package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shashiranjanraj/shopfront/pkg/response"
	"github.com/shashiranjanraj/shopfront/pkg/router"
)

// RegisterFallback answers unmatched paths. With dir set, anything outside
// /api is served from the built SPA and unknown files fall back to
// index.html so client-side routes survive a reload.
func RegisterFallback(r *router.Router, dir string) {
	r.NotFound(fallback(dir))
}

func fallback(dir string) http.HandlerFunc {
	var files http.Handler
	if dir != "" {
		files = http.FileServer(http.Dir(dir))
	}
	return func(w http.ResponseWriter, req *http.Request) {
		if files == nil || req.URL.Path == "/api" || strings.HasPrefix(req.URL.Path, "/api/") {
			response.Error(w, http.StatusNotFound, "route not found")
			return
		}
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			response.Error(w, http.StatusNotFound, "route not found")
			return
		}

		name := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+req.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, req)
			return
		}
		http.ServeFile(w, req, filepath.Join(dir, "index.html"))
	}
}
