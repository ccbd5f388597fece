package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/printloom/printsync-backend/api/responses"
	"github.com/printloom/printsync-backend/internal/webhooks"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
)

const signatureHeader = "X-Printify-Signature"

// PrintifyWebhookService applies a validated event to the local store.
type PrintifyWebhookService interface {
	Handle(ctx context.Context, event *webhooks.Event) error
}

// WebhookTracker records delivery observability state.
type WebhookTracker interface {
	MarkWebhookReceived(ctx context.Context, shopID string, eventType enums.WebhookEventType) error
}

// PrintifyWebhook ingests vendor deliveries: signature check against the raw
// body, event parse, dispatch. Unknown event types are acknowledged so the
// vendor does not retry them forever.
func PrintifyWebhook(svc PrintifyWebhookService, tracker WebhookTracker, secret string, m *metrics.SyncMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if secret == "" {
			if logg != nil {
				logg.Warn(ctx, "webhook secret not configured, accepting unsigned delivery")
			}
		} else if !webhooks.VerifySignature(secret, payload, r.Header.Get(signatureHeader)) {
			m.IncWebhookRejected("signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := webhooks.ParseEvent(payload)
		if err != nil {
			m.IncWebhookRejected("malformed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithEventType(ctx, string(event.Type))
		}

		if !event.Type.IsValid() {
			// acknowledged, not processed
			if logg != nil {
				logg.Warn(ctx, "unsupported webhook event type, acknowledging")
			}
			m.IncWebhookRejected("unsupported")
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.Handle(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if tracker != nil {
			if err := tracker.MarkWebhookReceived(ctx, event.ShopID, event.Type); err != nil && logg != nil {
				logg.Error(ctx, "mark webhook received failed", err)
			}
		}
		m.IncWebhookReceived(string(event.Type))
		responses.WriteSuccess(w, nil)
	}
}
