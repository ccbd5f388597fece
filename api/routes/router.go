package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printloom/printsync-backend/api/controllers"
	webhookcontrollers "github.com/printloom/printsync-backend/api/controllers/webhooks"
	"github.com/printloom/printsync-backend/api/middleware"
	"github.com/printloom/printsync-backend/pkg/config"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Imports       controllers.ImportService
	SyncLogs      controllers.SyncLogLister
	Health        controllers.WebhookHealthReader
	WebhookSvc    webhookcontrollers.PrintifyWebhookService
	WebhookTrack  webhookcontrollers.WebhookTracker
	SyncMetrics   *metrics.SyncMetrics
	MetricsHandle http.Handler
}

// NewRouter wires the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Get("/healthz", controllers.Healthz(deps.DB, deps.Redis, deps.Logger))

	metricsHandler := deps.MetricsHandle
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/printify", webhookcontrollers.PrintifyWebhook(
			deps.WebhookSvc,
			deps.WebhookTrack,
			deps.Config.Printify.WebhookSecret,
			deps.SyncMetrics,
			deps.Logger,
		))

		r.Route("/shops/{shopID}", func(r chi.Router) {
			r.Post("/imports/{jobType}", controllers.TriggerImport(deps.Imports, deps.Logger))
			r.Get("/imports/{jobType}", controllers.GetImportProgress(deps.Imports, deps.Logger))
			r.Get("/sync-logs", controllers.ListSyncLogs(deps.SyncLogs, deps.Logger))
			r.Get("/webhook-health", controllers.GetWebhookHealth(deps.Health, deps.Logger))
		})
	})

	return r
}
