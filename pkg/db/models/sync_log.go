package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printloom/printsync-backend/pkg/enums"
)

// SyncLog is an append-only record of one item-level sync attempt. Rows are
// never updated after insertion; dashboards read them, retries never do.
type SyncLog struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ShopID     string           `gorm:"column:shop_id;not null;index"`
	EntityID   *uuid.UUID       `gorm:"column:entity_id;type:uuid"`
	ExternalID string           `gorm:"column:external_id;not null;index"`
	SyncType   enums.SyncType   `gorm:"column:sync_type;not null"`
	Status     enums.SyncStatus `gorm:"column:status;not null"`
	Message    string           `gorm:"column:message"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime;index"`
}

func (s *SyncLog) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
