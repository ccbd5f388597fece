package synclog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	"github.com/printloom/printsync-backend/pkg/logger"
)

// Entry is one item-level sync outcome to be appended.
type Entry struct {
	ShopID     string
	EntityID   *uuid.UUID
	ExternalID string
	SyncType   enums.SyncType
	Status     enums.SyncStatus
	Message    string
}

// Recorder appends sync outcomes. Pure insert, no read-modify-write, so it is
// safe from any concurrent context without locking.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Service implements Recorder over the sync_logs table and exposes the
// dashboard read path plus retention pruning.
type Service struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewService builds the sync log service.
func NewService(db *gorm.DB, logg *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	return &Service{db: db, logg: logg}, nil
}

// Record appends one entry. Failures are returned but callers treat the log
// as observability, not a source of truth, so they typically log and move on.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	row := models.SyncLog{
		ShopID:     entry.ShopID,
		EntityID:   entry.EntityID,
		ExternalID: entry.ExternalID,
		SyncType:   entry.SyncType,
		Status:     entry.Status,
		Message:    entry.Message,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "sync log append failed", err)
		}
		return err
	}
	return nil
}

// ListParams page through a shop's log entries, newest first.
type ListParams struct {
	ShopID string
	Status enums.SyncStatus
	Limit  int
	Offset int
}

// List returns log entries for dashboards.
func (s *Service) List(ctx context.Context, params ListParams) ([]models.SyncLog, int64, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Model(&models.SyncLog{}).Where("shop_id = ?", params.ShopID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.SyncLog
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Prune deletes entries older than the retention window and returns the
// number removed.
func (s *Service) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.SyncLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
