package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/printloom/printsync-backend/api/responses"
	"github.com/printloom/printsync-backend/api/validators"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
)

// SyncLogLister pages through recorded sync outcomes.
type SyncLogLister interface {
	List(ctx context.Context, params synclog.ListParams) ([]models.SyncLog, int64, error)
}

type syncLogListResponse struct {
	Entries []models.SyncLog `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListSyncLogs returns the newest sync log entries for a shop.
func ListSyncLogs(svc SyncLogLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync log service unavailable"))
			return
		}

		params := synclog.ListParams{ShopID: chi.URLParam(r, "shopID")}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params.Limit = limit

		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params.Offset = offset

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed := enums.SyncStatus(status)
			if !parsed.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status must be success or failed"))
				return
			}
			params.Status = parsed
		}

		entries, total, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, syncLogListResponse{
			Entries: entries,
			Total:   total,
			Limit:   params.Limit,
			Offset:  params.Offset,
		})
	}
}
