package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/printloom/printsync-backend/pkg/logger"
)

type fakeSyncLogPruner struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeSyncLogPruner) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	f.called++
	f.lastCutoff = olderThan
	if f.err != nil {
		return 0, f.err
	}
	return 12, nil
}

func newRetentionJob(t *testing.T, pruner *fakeSyncLogPruner, retention time.Duration) *syncLogRetentionJob {
	t.Helper()
	jobIface, err := NewSyncLogRetentionJob(SyncLogRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Pruner:    pruner,
		Retention: retention,
	})
	if err != nil {
		t.Fatalf("NewSyncLogRetentionJob: %v", err)
	}
	job, ok := jobIface.(*syncLogRetentionJob)
	if !ok {
		t.Fatalf("expected syncLogRetentionJob, got %T", jobIface)
	}
	return job
}

func TestSyncLogRetentionJobPrunesAtCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	pruner := &fakeSyncLogPruner{}
	job := newRetentionJob(t, pruner, 7*24*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-7 * 24 * time.Hour)
	if !pruner.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, pruner.lastCutoff)
	}
	if pruner.called != 1 {
		t.Fatalf("expected pruner called once, got %d", pruner.called)
	}
}

func TestSyncLogRetentionJobDefaultsRetention(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	pruner := &fakeSyncLogPruner{}
	job := newRetentionJob(t, pruner, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-defaultLogRetention)
	if !pruner.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, pruner.lastCutoff)
	}
}

func TestSyncLogRetentionJobPropagatesError(t *testing.T) {
	pruner := &fakeSyncLogPruner{err: errors.New("boom")}
	job := newRetentionJob(t, pruner, time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
