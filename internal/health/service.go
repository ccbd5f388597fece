package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/pkg/enums"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/printify"
)

// vendorClient is the registration surface on the Printify API.
type vendorClient interface {
	ListWebhooks(ctx context.Context, shopID string) ([]printify.Webhook, error)
	CreateWebhook(ctx context.Context, shopID, topic, url string) (*printify.Webhook, error)
}

// healthStore reads webhook observability state and persists reports.
type healthStore interface {
	BaselineImported(ctx context.Context, shopID string) (bool, error)
	LastWebhookReceived(ctx context.Context, shopID string) (time.Time, bool, error)
	SaveHealth(ctx context.Context, report progress.HealthReport) error
}

// catchUpTrigger re-syncs a shop after a detected delivery gap.
type catchUpTrigger interface {
	CatchUpSync(ctx context.Context, shopID string) error
}

// ServiceParams configure the webhook health checker.
type ServiceParams struct {
	Logger      *logger.Logger
	Vendor      vendorClient
	Store       healthStore
	CatchUp     catchUpTrigger
	EndpointURL string
	Timeout     time.Duration
}

// Service verifies that every required event subscription exists on the
// vendor side and that events are actually arriving. Missing subscriptions
// are re-registered individually; a silent endpoint triggers a catch-up sync
// because deliveries may have been lost while it was broken.
type Service struct {
	logg        *logger.Logger
	vendor      vendorClient
	store       healthStore
	catchUp     catchUpTrigger
	endpointURL string
	timeout     time.Duration
	now         func() time.Time
}

// NewService builds the health checker.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Vendor == nil {
		return nil, errors.New("vendor client required")
	}
	if params.Store == nil {
		return nil, errors.New("health store required")
	}
	if params.CatchUp == nil {
		return nil, errors.New("catch-up trigger required")
	}
	if params.EndpointURL == "" {
		return nil, errors.New("endpoint url required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &Service{
		logg:        params.Logger,
		vendor:      params.Vendor,
		store:       params.Store,
		catchUp:     params.CatchUp,
		endpointURL: params.EndpointURL,
		timeout:     timeout,
		now:         time.Now,
	}, nil
}

// CheckHealth runs one health pass for the shop and persists the report.
func (s *Service) CheckHealth(ctx context.Context, shopID string) (progress.HealthReport, error) {
	logCtx := s.logg.WithShopID(ctx, shopID)
	report := progress.HealthReport{
		ShopID:    shopID,
		CheckedAt: s.now().UTC(),
	}

	// no point judging webhook traffic before the initial import finished
	imported, err := s.store.BaselineImported(ctx, shopID)
	if err != nil {
		return report, err
	}
	if !imported {
		report.Healthy = true
		report.Reason = "baseline import incomplete"
		return report, s.store.SaveHealth(ctx, report)
	}

	missing, err := s.missingEvents(ctx, shopID)
	if err != nil {
		return report, err
	}
	report.MissingCount = len(missing)

	lastReceived, received, err := s.store.LastWebhookReceived(ctx, shopID)
	if err != nil {
		return report, err
	}
	report.Stale = !received || s.now().Sub(lastReceived) > s.timeout

	report.Healthy = len(missing) == 0 && !report.Stale
	if report.Healthy {
		return report, s.store.SaveHealth(ctx, report)
	}

	if len(missing) > 0 {
		report.Reason = fmt.Sprintf("%d subscriptions missing", len(missing))
		s.registerMissing(logCtx, shopID, missing)
	}
	if report.Stale {
		if report.Reason != "" {
			report.Reason += "; "
		}
		report.Reason += "no deliveries within timeout"
	}

	s.logg.Warn(logCtx, fmt.Sprintf("webhook endpoint unhealthy: %s", report.Reason))
	if err := s.catchUp.CatchUpSync(ctx, shopID); err != nil {
		s.logg.Error(logCtx, "catch-up sync trigger failed", err)
	}
	return report, s.store.SaveHealth(ctx, report)
}

// missingEvents diffs the live registrations for this endpoint against the
// required set, so re-registration only ever touches what is actually absent.
func (s *Service) missingEvents(ctx context.Context, shopID string) ([]enums.WebhookEventType, error) {
	live, err := s.vendor.ListWebhooks(ctx, shopID)
	if err != nil {
		return nil, err
	}
	registered := make(map[enums.WebhookEventType]bool, len(live))
	for _, hook := range live {
		if hook.URL == s.endpointURL {
			registered[enums.WebhookEventType(hook.Topic)] = true
		}
	}
	var missing []enums.WebhookEventType
	for _, event := range enums.RequiredWebhookEvents {
		if !registered[event] {
			missing = append(missing, event)
		}
	}
	return missing, nil
}

func (s *Service) registerMissing(ctx context.Context, shopID string, missing []enums.WebhookEventType) {
	for _, event := range missing {
		if _, err := s.vendor.CreateWebhook(ctx, shopID, string(event), s.endpointURL); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("register webhook %s failed", event), err)
			continue
		}
		s.logg.Info(s.logg.WithEventType(ctx, string(event)), "webhook subscription registered")
	}
}
