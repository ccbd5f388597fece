package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printloom/printsync-backend/api/responses"
	"github.com/printloom/printsync-backend/api/validators"
	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
)

// ImportService seeds and inspects import chains.
type ImportService interface {
	StartImport(ctx context.Context, shopID string, jobType enums.ImportJobType, catchUp bool) error
	Progress(ctx context.Context, shopID string, jobType enums.ImportJobType) (*progress.ImportProgress, error)
}

// triggerImportRequest is the optional trigger body. Mode "catchup" tags the
// chain as reconciliation work so its pages are attributable in logs.
type triggerImportRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=full catchup"`
}

// TriggerImport starts an import chain for the shop and job type in the URL.
// A chain already holding the lease answers 409.
func TriggerImport(svc ImportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		shopID := chi.URLParam(r, "shopID")
		jobType, err := enums.ParseImportJobType(chi.URLParam(r, "jobType"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job type"))
			return
		}

		var req triggerImportRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		if err := svc.StartImport(ctx, shopID, jobType, req.Mode == "catchup"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"shopId":  shopID,
			"jobType": string(jobType),
			"status":  string(enums.JobStatusScheduled),
		})
	}
}

// GetImportProgress returns the current chain state for polling dashboards.
func GetImportProgress(svc ImportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		shopID := chi.URLParam(r, "shopID")
		jobType, err := enums.ParseImportJobType(chi.URLParam(r, "jobType"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job type"))
			return
		}

		record, err := svc.Progress(ctx, shopID, jobType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if record == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no import recorded for this shop and job type"))
			return
		}
		responses.WriteSuccess(w, record)
	}
}
