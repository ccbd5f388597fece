package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/pkg/logger"
)

type fakeHealthChecker struct {
	checked  []string
	failShop string
}

func (f *fakeHealthChecker) CheckHealth(_ context.Context, shopID string) (progress.HealthReport, error) {
	f.checked = append(f.checked, shopID)
	if shopID == f.failShop {
		return progress.HealthReport{}, errors.New("vendor unreachable")
	}
	return progress.HealthReport{ShopID: shopID, Healthy: true}, nil
}

func newHealthJob(t *testing.T, checker *fakeHealthChecker, shopIDs []string) Job {
	t.Helper()
	job, err := NewWebhookHealthJob(WebhookHealthJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Checker: checker,
		ShopIDs: shopIDs,
	})
	if err != nil {
		t.Fatalf("NewWebhookHealthJob: %v", err)
	}
	return job
}

func TestWebhookHealthJobChecksEveryShop(t *testing.T) {
	checker := &fakeHealthChecker{}
	job := newHealthJob(t, checker, []string{"shop-1", "shop-2", "shop-3"})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(checker.checked) != 3 {
		t.Fatalf("expected 3 shops checked, got %v", checker.checked)
	}
}

func TestWebhookHealthJobContinuesPastFailingShop(t *testing.T) {
	checker := &fakeHealthChecker{failShop: "shop-2"}
	job := newHealthJob(t, checker, []string{"shop-1", "shop-2", "shop-3"})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from failing shop")
	}
	if len(checker.checked) != 3 {
		t.Fatalf("one failing shop must not stop the rest, checked %v", checker.checked)
	}
	if !strings.Contains(err.Error(), "shop shop-2") {
		t.Fatalf("error should name the failing shop: %v", err)
	}
}

func TestWebhookHealthJobRequiresShops(t *testing.T) {
	_, err := NewWebhookHealthJob(WebhookHealthJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Checker: &fakeHealthChecker{},
	})
	if err == nil {
		t.Fatal("expected error for empty shop list")
	}
}
