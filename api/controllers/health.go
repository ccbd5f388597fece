package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printloom/printsync-backend/api/responses"
	"github.com/printloom/printsync-backend/internal/progress"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
)

// Pinger covers the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports process liveness plus dependency reachability.
func Healthz(database, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := map[string]string{"status": "ok", "db": "ok", "redis": "ok"}
		healthy := true

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				status["db"] = "unreachable"
				healthy = false
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				status["redis"] = "unreachable"
				healthy = false
			}
		}

		if !healthy {
			status["status"] = "degraded"
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unreachable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// WebhookHealthReader returns the last persisted health report.
type WebhookHealthReader interface {
	GetHealth(ctx context.Context, shopID string) (*progress.HealthReport, error)
}

// GetWebhookHealth exposes the most recent webhook health report for a shop.
func GetWebhookHealth(store WebhookHealthReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "health store unavailable"))
			return
		}
		report, err := store.GetHealth(ctx, chi.URLParam(r, "shopID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if report == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no health report recorded for this shop"))
			return
		}
		responses.WriteSuccess(w, report)
	}
}
