package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocklinehq/stockline-backend/api/controllers"
	"github.com/stocklinehq/stockline-backend/api/middleware"
	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/bigquery"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/redis"
)

// NewRouter wires the planning API surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	bigqueryP bigquery.Pinger,
	reorderService *reorder.Service,
	statsService *reorder.StatsService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, bigqueryP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reorders", func(r chi.Router) {
			r.Post("/manual", controllers.ManualReorder(reorderService, logg))
			r.Post("/process", controllers.ProcessPending(reorderService, logg))
			r.Post("/sweep", controllers.ProcessAutoReorder(reorderService, logg))
			r.Get("/pending", controllers.PendingTriggers(reorderService, logg))
			r.Get("/statistics", controllers.ReorderStatistics(statsService, logg))
		})

		r.Route("/skus/{skuID}", func(r chi.Router) {
			r.Put("/reorder-settings", controllers.UpdateReorderSettings(reorderService, logg))
			r.Get("/reorder-history", controllers.ReorderHistory(reorderService, logg))
			r.Get("/reorder-pending", controllers.HasPendingReorder(reorderService, logg))
		})
	})

	return r
}
