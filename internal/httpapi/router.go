package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/arqlane/suggestd/pkg/config"
	"github.com/arqlane/suggestd/pkg/engine"
)

// NewRouter builds the full HTTP surface for eng: the Suggestion API
// (read-heavy, generously rate limited) and the Admin API (mutating,
// tightly rate limited), each under its own middleware stack.
func NewRouter(eng *engine.Engine, cfg config.ServerConfig) http.Handler {
	h := NewHandler(eng)
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Use(corsMiddleware(cfg))

	r.Route("/", func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimitSuggestRPM))
		r.Get("/suggest", h.Suggest)
		r.Post("/log_completion", h.LogCompletion)
		r.Get("/trending", h.Trending)
		r.Get("/popular", h.Popular)
		r.Get("/history", h.History)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimitAdminRPM))
		r.Post("/rebuild", h.Rebuild)
		r.Post("/upsert_phrase", h.UpsertPhrase)
		r.Post("/delete_phrase", h.DeletePhrase)
		r.Post("/filter_add", h.FilterAdd)
		r.Post("/filter_remove", h.FilterRemove)
		r.Post("/cache_clear", h.CacheClear)
		r.Get("/status", h.Status)
	})

	return r
}
