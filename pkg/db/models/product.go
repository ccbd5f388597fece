package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/pkg/types"
)

// Product is the local commerce record mirroring a Printify catalog product.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	PrintifyID  string                `gorm:"column:printify_id;not null;uniqueIndex:ux_products_printify_id"`
	ShopID      string                `gorm:"column:shop_id;not null;index"`
	Title       string                `gorm:"column:title;not null"`
	Description string                `gorm:"column:description"`
	Tags        pq.StringArray        `gorm:"column:tags;type:text[]"`
	Variants    types.ProductVariants `gorm:"column:variants;type:jsonb;serializer:json"`
	Visible     bool                  `gorm:"column:visible;not null;default:true"`
	Images      []ProductImage        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductImage is one imported attachment, deduplicated by source URL.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_images_source,priority:1"`
	SourceURL string    `gorm:"column:source_url;not null;uniqueIndex:ux_product_images_source,priority:2"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
