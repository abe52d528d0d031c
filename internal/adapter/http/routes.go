package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/annapurna-labs/annapurna/internal/middleware"
)

// MountRoutes registers all routes on the given chi router. The rate
// limiter guards chat only; feedback and health stay unthrottled.
// /chat is a legacy alias for /api/chat kept for older UI builds.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter, staticDir string) {
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/api/chat", h.Chat)
		r.Post("/chat", h.Chat)
	})

	r.Post("/api/feedback", h.Feedback)
	r.Post("/feedback", h.Feedback)
	r.Get("/health", h.Health)

	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, staticDir+"/index.html")
		})
		r.Get("/*", fs.ServeHTTP)
	}
}
