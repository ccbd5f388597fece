package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/printloom/printsync-backend/pkg/logger"
)

const defaultLogRetention = 30 * 24 * time.Hour

// syncLogPruner deletes sync log rows older than a cutoff.
type syncLogPruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SyncLogRetentionJobParams configure the sync log retention job.
type SyncLogRetentionJobParams struct {
	Logger    *logger.Logger
	Pruner    syncLogPruner
	Retention time.Duration
}

// NewSyncLogRetentionJob builds the job that keeps the append-only sync log
// table bounded.
func NewSyncLogRetentionJob(params SyncLogRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("pruner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultLogRetention
	}
	return &syncLogRetentionJob{
		logg:      params.Logger,
		pruner:    params.Pruner,
		retention: retention,
		now:       time.Now,
	}, nil
}

type syncLogRetentionJob struct {
	logg      *logger.Logger
	pruner    syncLogPruner
	retention time.Duration
	now       func() time.Time
}

func (j *syncLogRetentionJob) Name() string { return "synclog-retention" }

func (j *syncLogRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sync log retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "sync log retention cleanup complete")
	return nil
}
