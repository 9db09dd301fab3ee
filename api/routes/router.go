package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/resellsync/api/controllers"
	"github.com/angelmondragon/resellsync/api/middleware"
	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

// NewRouter builds the worker's ops surface: liveness, readiness and the
// Prometheus scrape endpoint. A nil metrics handler leaves /metrics unmounted.
func NewRouter(cfg *config.Config, logg *logger.Logger, metrics http.Handler, deps ...controllers.Dependency) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps...))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}
