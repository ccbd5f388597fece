package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/internal/repo"
	"github.com/printloom/printsync-backend/pkg/db/models"
)

// Repository is the commerce-store contract for products: every write goes
// through upsert-by-external-id so re-imports never duplicate rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPrintifyID(ctx context.Context, shopID, printifyID string) (*models.Product, error)
	ExistsByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error)
	Upsert(ctx context.Context, product *models.Product) (*models.Product, bool, error)
	DeleteByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error)
	ImageExistsBySourceURL(ctx context.Context, productID uuid.UUID, sourceURL string) (bool, error)
	AttachImage(ctx context.Context, image *models.ProductImage) error
	CountImages(ctx context.Context, productID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) FindByPrintifyID(ctx context.Context, shopID, printifyID string) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ExistsByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert looks the product up by its external ID, creating it when absent and
// otherwise updating the mutable fields. The second return reports whether a
// row was created.
func (r *repository) Upsert(ctx context.Context, product *models.Product) (*models.Product, bool, error) {
	existing, err := r.FindByPrintifyID(ctx, product.ShopID, product.PrintifyID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		if err := r.DB(ctx).Create(product).Error; err != nil {
			return nil, false, err
		}
		return product, true, nil
	}

	existing.Title = product.Title
	existing.Description = product.Description
	existing.Tags = product.Tags
	existing.Variants = product.Variants
	existing.Visible = product.Visible
	if err := r.DB(ctx).Save(existing).Error; err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repository) DeleteByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error) {
	result := r.DB(ctx).
		Where("shop_id = ? AND printify_id = ?", shopID, printifyID).
		Delete(&models.Product{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ImageExistsBySourceURL(ctx context.Context, productID uuid.UUID, sourceURL string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ? AND source_url = ?", productID, sourceURL).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) AttachImage(ctx context.Context, image *models.ProductImage) error {
	return r.DB(ctx).Create(image).Error
}

func (r *repository) CountImages(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}
