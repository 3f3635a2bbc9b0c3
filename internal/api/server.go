// Package api exposes a small operational status surface. It is not part of
// the notification pipeline; operators use it to check liveness, store
// reachability, and relay-queue pressure.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/duskwing/skylight/internal/config"
	"github.com/duskwing/skylight/internal/db"
)

// Status reports the pipeline's current shape.
type Status struct {
	Environment   string `json:"environment"`
	Timezone      string `json:"timezone"`
	Mode          string `json:"subscription_mode"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	CachedRows    int    `json:"cached_rows"`
}

// StatusFunc samples the pipeline. Supplied by main so the router has no
// view into scheduler internals.
type StatusFunc func() Status

// NewRouter creates the Chi router for the status surface.
func NewRouter(pool *db.Pool, cfg *config.Config, status StatusFunc) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	c := corslib.New(corslib.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Use(c.Handler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/db", func(w http.ResponseWriter, req *http.Request) {
			if err := pool.HealthCheck(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable", "error": err.Error(),
				})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status())
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
