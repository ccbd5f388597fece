package progress

import (
	"context"
	"testing"
	"time"

	"github.com/printloom/printsync-backend/pkg/enums"
	"github.com/printloom/printsync-backend/pkg/redis"
)

type fakeKV struct {
	values   map[string]string
	counters map[string]int64
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeKV) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeKV) ProgressKey(shopID, jobType string) string { return "progress:" + shopID + ":" + jobType }
func (f *fakeKV) QueueKey(shopID, jobType string) string    { return "queue:" + shopID + ":" + jobType }
func (f *fakeKV) WebhookKey(parts ...string) string {
	key := "webhook"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func (f *fakeKV) CounterKey(parts ...string) string {
	key := "counter"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func newTestStore(t *testing.T, kv kvStore) *Store {
	t.Helper()
	store, err := NewStore(kv, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("construct store: %v", err)
	}
	return store
}

func TestProgressRoundTrip(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	ctx := context.Background()

	record, err := store.Get(ctx, "shop-1", enums.JobTypeProduct)
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record before save, got %+v", record)
	}

	saved := &ImportProgress{
		ShopID:    "shop-1",
		JobType:   enums.JobTypeProduct,
		Cursor:    3,
		LastPage:  7,
		Total:     350,
		Processed: 150,
		Status:    enums.JobStatusRunning,
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.LastUpdatedAt.IsZero() {
		t.Fatalf("save did not stamp LastUpdatedAt")
	}

	loaded, err := store.Get(ctx, "shop-1", enums.JobTypeProduct)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatalf("expected record after save")
	}
	if loaded.Cursor != 3 || loaded.Processed != 150 || loaded.Status != enums.JobStatusRunning {
		t.Fatalf("record mangled on round trip: %+v", loaded)
	}

	if err := store.Delete(ctx, "shop-1", enums.JobTypeProduct); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loaded, err = store.Get(ctx, "shop-1", enums.JobTypeProduct)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil record after delete, got %+v", loaded)
	}
}

func TestWorkQueuePersistence(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	ctx := context.Background()

	items, err := store.LoadQueue(ctx, "shop-1", enums.JobTypeImage)
	if err != nil {
		t.Fatalf("load absent queue: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil queue before save, got %v", items)
	}

	if err := store.SaveQueue(ctx, "shop-1", enums.JobTypeImage, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("save queue: %v", err)
	}
	items, err = store.LoadQueue(ctx, "shop-1", enums.JobTypeImage)
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	if len(items) != 3 || items[0] != "a" || items[2] != "c" {
		t.Fatalf("queue mangled on round trip: %v", items)
	}

	if err := store.DeleteQueue(ctx, "shop-1", enums.JobTypeImage); err != nil {
		t.Fatalf("delete queue: %v", err)
	}
	items, err = store.LoadQueue(ctx, "shop-1", enums.JobTypeImage)
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil queue after delete, got %v", items)
	}
}

func TestWebhookReceiptTracking(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(t, kv)
	stamp := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return stamp }
	ctx := context.Background()

	_, ok, err := store.LastWebhookReceived(ctx, "shop-1")
	if err != nil {
		t.Fatalf("read before mark: %v", err)
	}
	if ok {
		t.Fatalf("expected no receipt before mark")
	}

	if err := store.MarkWebhookReceived(ctx, "shop-1", enums.EventProductUpdated); err != nil {
		t.Fatalf("mark received: %v", err)
	}
	got, ok, err := store.LastWebhookReceived(ctx, "shop-1")
	if err != nil {
		t.Fatalf("read after mark: %v", err)
	}
	if !ok {
		t.Fatalf("expected receipt after mark")
	}
	if !got.Equal(stamp) {
		t.Fatalf("timestamp mismatch: want %v, got %v", stamp, got)
	}
	if kv.counters[kv.CounterKey("webhook_received", "shop-1")] != 1 {
		t.Fatalf("receipt counter not bumped")
	}
}

func TestHealthReportRoundTrip(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	ctx := context.Background()

	report, err := store.GetHealth(ctx, "shop-1")
	if err != nil {
		t.Fatalf("get absent health: %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report before save, got %+v", report)
	}

	saved := HealthReport{
		ShopID:       "shop-1",
		Healthy:      false,
		MissingCount: 2,
		Stale:        true,
		CheckedAt:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Reason:       "2 subscriptions missing",
	}
	if err := store.SaveHealth(ctx, saved); err != nil {
		t.Fatalf("save health: %v", err)
	}
	report, err = store.GetHealth(ctx, "shop-1")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if report == nil {
		t.Fatalf("expected report after save")
	}
	if report.Healthy || report.MissingCount != 2 || !report.Stale || report.Reason != saved.Reason {
		t.Fatalf("report mangled on round trip: %+v", report)
	}
}

func TestBaselineMarker(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	ctx := context.Background()

	done, err := store.BaselineImported(ctx, "shop-1")
	if err != nil {
		t.Fatalf("read before mark: %v", err)
	}
	if done {
		t.Fatalf("baseline should not be marked yet")
	}

	if err := store.MarkBaselineImported(ctx, "shop-1"); err != nil {
		t.Fatalf("mark baseline: %v", err)
	}
	done, err = store.BaselineImported(ctx, "shop-1")
	if err != nil {
		t.Fatalf("read after mark: %v", err)
	}
	if !done {
		t.Fatalf("baseline marker lost")
	}
}
