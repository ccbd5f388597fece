package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/pkg/logger"
)

// healthChecker runs one webhook health pass for a shop.
type healthChecker interface {
	CheckHealth(ctx context.Context, shopID string) (progress.HealthReport, error)
}

// WebhookHealthJobParams configure the health check job.
type WebhookHealthJobParams struct {
	Logger  *logger.Logger
	Checker healthChecker
	ShopIDs []string
}

// NewWebhookHealthJob builds the job that verifies webhook registrations and
// delivery freshness for every configured shop.
func NewWebhookHealthJob(params WebhookHealthJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("health checker required")
	}
	if len(params.ShopIDs) == 0 {
		return nil, fmt.Errorf("at least one shop id required")
	}
	return &webhookHealthJob{
		logg:    params.Logger,
		checker: params.Checker,
		shopIDs: params.ShopIDs,
	}, nil
}

type webhookHealthJob struct {
	logg    *logger.Logger
	checker healthChecker
	shopIDs []string
}

func (j *webhookHealthJob) Name() string { return "webhook-health" }

// Run checks every shop; one failing shop does not stop the rest.
func (j *webhookHealthJob) Run(ctx context.Context) error {
	var errs error
	for _, shopID := range j.shopIDs {
		report, err := j.checker.CheckHealth(ctx, shopID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shop %s: %w", shopID, err))
			continue
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"shop_id": shopID,
			"healthy": report.Healthy,
			"missing": report.MissingCount,
			"stale":   report.Stale,
		})
		j.logg.Info(logCtx, "webhook health checked")
	}
	return errs
}
