package server

import (
	"log/slog"
	"net/http"
	"time"

	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/handlers"
	"tsa-volume-tracker/internal/workers"

	"github.com/go-chi/chi/v5"
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	Config    *config.Config
	DB        *database.DB
	Runner    *workers.Runner
	Scheduler *workers.Scheduler
	Logger    *slog.Logger
}

// NewRouter builds the chi router with all API routes registered.
func NewRouter(deps Dependencies) http.Handler {
	healthHandler := handlers.NewHealthHandler(deps.DB)
	volumeHandler := handlers.NewVolumeHandler(deps.DB)
	reportHandler := handlers.NewReportHandler(deps.DB, deps.Runner, deps.Config)
	adminHandler := handlers.NewAdminHandler(deps.Scheduler, deps.Logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Get("/volumes", volumeHandler.GetVolumes)
		r.Get("/volumes/latest", volumeHandler.GetLatestVolume)
		r.Get("/stats", volumeHandler.GetStats)

		r.Get("/reports", reportHandler.ListReports)
		r.Get("/reports/latest", reportHandler.GetLatestReport)
		r.Get("/reports/latest/chart.png", reportHandler.GetLatestChart)
		r.Post("/reports/run", reportHandler.TriggerRun)

		r.Route("/admin", func(r chi.Router) {
			// Admin routes are open unless a token is configured
			if deps.Config.AdminToken != "" {
				r.Use(AuthMiddleware(deps.Config.AdminToken))
			}
			r.Get("/scheduler", adminHandler.GetSchedulerStatus)
			r.Post("/scheduler/pause", adminHandler.PauseScheduler)
			r.Post("/scheduler/resume", adminHandler.ResumeScheduler)
		})
	})

	return Chain(
		r,
		LoggingMiddleware,
		RecoveryMiddleware,
		CORSMiddleware,
		ContentTypeMiddleware,
		SecurityMiddleware,
	)
}

// New creates the HTTP server around the router.
func New(deps Dependencies) *http.Server {
	return &http.Server{
		Addr:    deps.Config.Address(),
		Handler: NewRouter(deps),

		ReadTimeout: 15 * time.Second,
		// The run endpoint scrapes TSA year pages inline, so responses
		// can take a while when the cache is cold
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}
