package orders

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/internal/repo"
	"github.com/printloom/printsync-backend/pkg/db/models"
)

// Repository is the commerce-store contract for orders. The existence check
// by external ID is what makes the whole order import idempotent.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPrintifyID(ctx context.Context, shopID, printifyID string) (*models.Order, error)
	ExistsByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error)
	Upsert(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	MarkCanceled(ctx context.Context, shopID, printifyID string, at time.Time) (bool, error)
	UpdateTracking(ctx context.Context, shopID, printifyID, carrier, number string) (bool, error)
	CountByShop(ctx context.Context, shopID string) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByPrintifyID(ctx context.Context, shopID, printifyID string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ExistsByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Order{}).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert creates the order when its external ID is unknown, else updates the
// mutable fields. The second return reports whether a row was created.
func (r *repository) Upsert(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	existing, err := r.FindByPrintifyID(ctx, order.ShopID, order.PrintifyID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		if err := r.DB(ctx).Create(order).Error; err != nil {
			return nil, false, err
		}
		return order, true, nil
	}

	existing.Status = order.Status
	existing.TotalCents = order.TotalCents
	existing.ShippingCents = order.ShippingCents
	existing.AddressTo = order.AddressTo
	existing.LineItems = order.LineItems
	if order.TrackingNumber != nil {
		existing.TrackingNumber = order.TrackingNumber
		existing.TrackingCarrier = order.TrackingCarrier
	}
	if order.CanceledAt != nil {
		existing.CanceledAt = order.CanceledAt
	}
	if err := r.DB(ctx).Save(existing).Error; err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repository) MarkCanceled(ctx context.Context, shopID, printifyID string, at time.Time) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Order{}).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		Updates(map[string]any{"status": "canceled", "canceled_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateTracking(ctx context.Context, shopID, printifyID, carrier, number string) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Order{}).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		Updates(map[string]any{"tracking_carrier": carrier, "tracking_number": number, "status": "shipped"})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CountByShop(ctx context.Context, shopID string) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Order{}).
		Where("shop_id = ?", shopID).
		Count(&count).Error
	return count, err
}
