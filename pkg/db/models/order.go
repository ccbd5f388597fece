package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/pkg/types"
)

// Order mirrors a Printify order in the local commerce store.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	PrintifyID      string               `gorm:"column:printify_id;not null;uniqueIndex:ux_orders_printify_id"`
	ShopID          string               `gorm:"column:shop_id;not null;index"`
	Status          string               `gorm:"column:status;not null;default:'pending'"`
	TotalCents      int                  `gorm:"column:total_cents;not null;default:0"`
	ShippingCents   int                  `gorm:"column:shipping_cents;not null;default:0"`
	Currency        string               `gorm:"column:currency;not null;default:'USD'"`
	AddressTo       *types.Address       `gorm:"column:address_to;type:jsonb;serializer:json"`
	LineItems       types.OrderLineItems `gorm:"column:line_items;type:jsonb;serializer:json"`
	TrackingNumber  *string              `gorm:"column:tracking_number"`
	TrackingCarrier *string              `gorm:"column:tracking_carrier"`
	CanceledAt      *time.Time           `gorm:"column:canceled_at"`
	VendorCreatedAt *time.Time           `gorm:"column:vendor_created_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
