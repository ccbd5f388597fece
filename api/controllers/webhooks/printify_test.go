package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/printloom/printsync-backend/internal/webhooks"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
)

type stubWebhookService struct {
	events []*webhooks.Event
	err    error
}

func (s *stubWebhookService) Handle(_ context.Context, event *webhooks.Event) error {
	s.events = append(s.events, event)
	return s.err
}

type stubTracker struct {
	shopIDs []string
	types   []enums.WebhookEventType
}

func (s *stubTracker) MarkWebhookReceived(_ context.Context, shopID string, eventType enums.WebhookEventType) error {
	s.shopIDs = append(s.shopIDs, shopID)
	s.types = append(s.types, eventType)
	return nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/printify", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Printify-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestPrintifyWebhookAcceptsSignedDelivery(t *testing.T) {
	svc := &stubWebhookService{}
	tracker := &stubTracker{}
	handler := PrintifyWebhook(svc, tracker, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	body := []byte(`{"event":"product:updated","shop_id":"815","resource":{"id":"prod-1"}}`)
	rec := postWebhook(handler, body, signBody("topsecret", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.events) != 1 || svc.events[0].Type != enums.EventProductUpdated {
		t.Fatalf("event not dispatched: %+v", svc.events)
	}
	if len(tracker.shopIDs) != 1 || tracker.shopIDs[0] != "815" {
		t.Fatalf("delivery not tracked: %+v", tracker.shopIDs)
	}
}

func TestPrintifyWebhookRejectsTamperedBody(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PrintifyWebhook(svc, &stubTracker{}, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	body := []byte(`{"event":"product:updated","resource":{"id":"prod-1"}}`)
	signature := signBody("topsecret", body)
	tampered := []byte(`{"event":"product:deleted","resource":{"id":"prod-1"}}`)
	rec := postWebhook(handler, tampered, signature)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("tampered delivery must not be dispatched")
	}
}

func TestPrintifyWebhookRejectsMissingSignature(t *testing.T) {
	handler := PrintifyWebhook(&stubWebhookService{}, &stubTracker{}, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	rec := postWebhook(handler, []byte(`{"event":"product:updated","resource":{"id":"1"}}`), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPrintifyWebhookAcceptsUnsignedWhenSecretUnset(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PrintifyWebhook(svc, &stubTracker{}, "", metrics.NewSyncMetrics(nil), testLogger())

	rec := postWebhook(handler, []byte(`{"event":"product:updated","resource":{"id":"1"}}`), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.events) != 1 {
		t.Fatalf("unsigned delivery must still be dispatched when no secret is configured")
	}
}

func TestPrintifyWebhookRejectsMalformedPayload(t *testing.T) {
	handler := PrintifyWebhook(&stubWebhookService{}, &stubTracker{}, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	body := []byte(`{"shop_id":"815"}`)
	rec := postWebhook(handler, body, signBody("topsecret", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPrintifyWebhookAcknowledgesUnknownEventType(t *testing.T) {
	svc := &stubWebhookService{}
	tracker := &stubTracker{}
	handler := PrintifyWebhook(svc, tracker, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	body := []byte(`{"event":"shop:disconnected","resource":{"id":"1"}}`)
	rec := postWebhook(handler, body, signBody("topsecret", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown event must be acknowledged with 200, got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("unknown event must not be dispatched")
	}
	if len(tracker.shopIDs) != 0 {
		t.Fatalf("unknown event must not count as a received delivery")
	}
}

func TestPrintifyWebhookSurfacesHandlerError(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeVendor, "vendor fetch failed")}
	handler := PrintifyWebhook(svc, &stubTracker{}, "topsecret", metrics.NewSyncMetrics(nil), testLogger())

	body := []byte(`{"event":"product:updated","resource":{"id":"prod-1"}}`)
	rec := postWebhook(handler, body, signBody("topsecret", body))
	if rec.Code < 500 {
		t.Fatalf("handler failure must signal a retryable status, got %d", rec.Code)
	}
}
