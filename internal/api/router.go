package api

import (
	"net/http"
	"strings"
	"time"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the public, admin and static routes
func NewRouter(h *Handler, adminToken, publicDir string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(requestLogger(log))

	// --- Public Routes ---
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/api/checkout", h.Checkout)
	r.Post("/api/webhook", h.Webhook)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(adminToken, log))
		r.Post("/api/publish", h.Publish)
		r.Post("/api/upload", h.Upload)
		r.Post("/api/ai/{kind}", h.Generate)
	})

	r.Handle("/*", staticFiles(publicDir))
	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}

// staticFiles serves the public directory without directory listings.
// The manifest is always revalidated.
func staticFiles(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == models.ManifestPath {
			w.Header().Set("Cache-Control", "no-cache")
		}
		fs.ServeHTTP(w, r)
	})
}
