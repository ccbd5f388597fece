package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/printify"
)

// vendorClient fetches the full entity behind an event; deliveries only carry
// the resource id.
type vendorClient interface {
	GetProduct(ctx context.Context, shopID, productID string) (*printify.Product, error)
	GetOrder(ctx context.Context, shopID, orderID string) (*printify.Order, error)
}

// syncer is the single-item import path shared with the batch pipeline.
type syncer interface {
	SyncProduct(ctx context.Context, shopID string, vendorProduct printify.Product) error
	SyncOrder(ctx context.Context, shopID string, vendorOrder printify.Order) error
}

type productStore interface {
	DeleteByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error)
}

type orderStore interface {
	MarkCanceled(ctx context.Context, shopID, printifyID string, at time.Time) (bool, error)
	UpdateTracking(ctx context.Context, shopID, printifyID, carrier, number string) (bool, error)
}

// ServiceParams configure the webhook event dispatcher.
type ServiceParams struct {
	Logger   *logger.Logger
	Vendor   vendorClient
	Syncer   syncer
	Products productStore
	Orders   orderStore
	SyncLog  synclog.Recorder
}

// Service applies validated webhook events to the local store. Every handler
// is a single-item upsert or status change keyed by the vendor id, so
// redelivery of the same event converges instead of duplicating.
type Service struct {
	logg     *logger.Logger
	vendor   vendorClient
	syncer   syncer
	products productStore
	orders   orderStore
	syncLog  synclog.Recorder
	now      func() time.Time
}

// NewService builds the dispatcher.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Vendor == nil {
		return nil, errors.New("vendor client required")
	}
	if params.Syncer == nil {
		return nil, errors.New("syncer required")
	}
	if params.Products == nil {
		return nil, errors.New("product store required")
	}
	if params.Orders == nil {
		return nil, errors.New("order store required")
	}
	if params.SyncLog == nil {
		return nil, errors.New("sync log recorder required")
	}
	return &Service{
		logg:     params.Logger,
		vendor:   params.Vendor,
		syncer:   params.Syncer,
		products: params.Products,
		orders:   params.Orders,
		syncLog:  params.SyncLog,
		now:      time.Now,
	}, nil
}

// Handle dispatches one parsed event. An error signals the vendor should
// retry the delivery.
func (s *Service) Handle(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "nil event")
	}
	if event.Resource.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing resource id")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":     event.ShopID,
		"event_type":  string(event.Type),
		"resource_id": event.Resource.ID,
	})

	switch event.Type {
	case enums.EventProductUpdated:
		return s.handleProductUpdated(logCtx, event)
	case enums.EventProductDeleted:
		return s.handleProductDeleted(logCtx, event)
	case enums.EventOrderCreated, enums.EventOrderUpdated:
		return s.handleOrderUpserted(logCtx, event)
	case enums.EventOrderCanceled:
		return s.handleOrderCanceled(logCtx, event)
	case enums.EventShippingUpdate:
		return s.handleShippingUpdate(logCtx, event)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported event type %q", event.Type))
	}
}

// handleProductUpdated refetches the product and runs it through the shared
// import path, covering both creation and update locally.
func (s *Service) handleProductUpdated(ctx context.Context, event *Event) error {
	vendorProduct, err := s.vendor.GetProduct(ctx, event.ShopID, event.Resource.ID)
	if err != nil {
		return err
	}
	if err := s.syncer.SyncProduct(ctx, event.ShopID, *vendorProduct); err != nil {
		return err
	}
	s.logg.Info(ctx, "product synced from webhook")
	return nil
}

func (s *Service) handleProductDeleted(ctx context.Context, event *Event) error {
	deleted, err := s.products.DeleteByPrintifyID(ctx, event.ShopID, event.Resource.ID)
	entry := synclog.Entry{
		ShopID:     event.ShopID,
		ExternalID: event.Resource.ID,
		SyncType:   enums.SyncTypeDelete,
		Status:     enums.SyncStatusSuccess,
	}
	if err != nil {
		entry.Status = enums.SyncStatusFailed
		entry.Message = err.Error()
		_ = s.syncLog.Record(ctx, entry)
		return err
	}
	if !deleted {
		// already absent locally, nothing to record
		s.logg.Warn(ctx, "delete event for unknown product, ignoring")
		return nil
	}
	_ = s.syncLog.Record(ctx, entry)
	s.logg.Info(ctx, "product deleted from webhook")
	return nil
}

func (s *Service) handleOrderUpserted(ctx context.Context, event *Event) error {
	vendorOrder, err := s.vendor.GetOrder(ctx, event.ShopID, event.Resource.ID)
	if err != nil {
		return err
	}
	if err := s.syncer.SyncOrder(ctx, event.ShopID, *vendorOrder); err != nil {
		return err
	}
	s.logg.Info(ctx, "order synced from webhook")
	return nil
}

// handleOrderCanceled flips the local status; an order never imported falls
// back to the full sync path so the cancellation is not lost.
func (s *Service) handleOrderCanceled(ctx context.Context, event *Event) error {
	canceled, err := s.orders.MarkCanceled(ctx, event.ShopID, event.Resource.ID, s.now().UTC())
	if err != nil {
		return err
	}
	if !canceled {
		return s.handleOrderUpserted(ctx, event)
	}
	_ = s.syncLog.Record(ctx, synclog.Entry{
		ShopID:     event.ShopID,
		ExternalID: event.Resource.ID,
		SyncType:   enums.SyncTypeCancel,
		Status:     enums.SyncStatusSuccess,
	})
	s.logg.Info(ctx, "order canceled from webhook")
	return nil
}

func (s *Service) handleShippingUpdate(ctx context.Context, event *Event) error {
	vendorOrder, err := s.vendor.GetOrder(ctx, event.ShopID, event.Resource.ID)
	if err != nil {
		return err
	}
	if len(vendorOrder.Shipments) == 0 {
		s.logg.Warn(ctx, "shipping event without shipment data, running full order sync")
		return s.syncer.SyncOrder(ctx, event.ShopID, *vendorOrder)
	}
	shipment := vendorOrder.Shipments[0]
	updated, err := s.orders.UpdateTracking(ctx, event.ShopID, event.Resource.ID, shipment.Carrier, shipment.Number)
	if err != nil {
		return err
	}
	if !updated {
		return s.syncer.SyncOrder(ctx, event.ShopID, *vendorOrder)
	}
	_ = s.syncLog.Record(ctx, synclog.Entry{
		ShopID:     event.ShopID,
		ExternalID: event.Resource.ID,
		SyncType:   enums.SyncTypeUpdate,
		Status:     enums.SyncStatusSuccess,
		Message:    fmt.Sprintf("tracking %s %s", shipment.Carrier, shipment.Number),
	})
	s.logg.Info(ctx, "order tracking updated from webhook")
	return nil
}
