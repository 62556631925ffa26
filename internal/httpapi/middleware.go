package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/arqlane/suggestd/pkg/config"
)

// corsMiddleware builds a go-chi/cors handler from the server's configured
// allowed origins. An empty list means same-origin only.
func corsMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           3600,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		// go-chi/cors allows every origin when the list is empty; reject
		// all cross-origin requests instead.
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}

// rateLimit builds an IP-keyed go-chi/httprate limiter allowing rpm
// requests per minute.
func rateLimit(rpm int) func(http.Handler) http.Handler {
	return httprate.Limit(rpm, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
}

// requestID stamps every response with an X-Request-Id header, generated
// with google/uuid, so a client can correlate a slow or degraded response
// with server-side logs.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}
