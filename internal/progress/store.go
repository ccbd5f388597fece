package progress

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/redis"
)

// kvStore defines the redis surface the progress store uses.
type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	ProgressKey(shopID, jobType string) string
	QueueKey(shopID, jobType string) string
	WebhookKey(parts ...string) string
	CounterKey(parts ...string) string
}

// ImportProgress is the persisted state of one import chain. It is
// reconstructed from this record on every scheduled invocation; the job is
// never kept alive between invocations.
type ImportProgress struct {
	ShopID        string                `json:"shopId"`
	JobType       enums.ImportJobType   `json:"jobType"`
	Cursor        int                   `json:"cursor"`
	LastPage      int                   `json:"lastPage"`
	Total         int                   `json:"total"`
	TotalKnown    bool                  `json:"totalKnown"`
	Processed     int                   `json:"processed"`
	Failed        int                   `json:"failed"`
	FetchAttempts int                   `json:"fetchAttempts"`
	Status        enums.ImportJobStatus `json:"status"`
	Percentage    int                   `json:"percentage"`
	StartedAt     time.Time             `json:"startedAt"`
	LastUpdatedAt time.Time             `json:"lastUpdatedAt"`
}

// HealthReport is the persisted output of one webhook health check tick.
type HealthReport struct {
	ShopID       string    `json:"shopId"`
	Healthy      bool      `json:"healthy"`
	MissingCount int       `json:"missingCount"`
	Stale        bool      `json:"stale"`
	CheckedAt    time.Time `json:"checkedAt"`
	Reason       string    `json:"reason,omitempty"`
}

// Store persists job progress, work queues, and webhook observability state
// in Redis. There is no get-modify-set atomicity; a single chain per
// (shop, job type) is the concurrency contract, enforced by the lease in the
// importer, so last-write-wins is acceptable here.
type Store struct {
	kv          kvStore
	progressTTL time.Duration
	queueTTL    time.Duration
	now         func() time.Time
}

// NewStore builds a progress store with the configured TTLs.
func NewStore(kv kvStore, progressTTL, queueTTL time.Duration) (*Store, error) {
	if kv == nil {
		return nil, errors.New("kv store required")
	}
	if progressTTL <= 0 {
		progressTTL = time.Hour
	}
	if queueTTL <= 0 {
		queueTTL = 24 * time.Hour
	}
	return &Store{
		kv:          kv,
		progressTTL: progressTTL,
		queueTTL:    queueTTL,
		now:         time.Now,
	}, nil
}

// Get returns the progress record for the chain, or nil when absent/expired.
func (s *Store) Get(ctx context.Context, shopID string, jobType enums.ImportJobType) (*ImportProgress, error) {
	raw, err := s.kv.Get(ctx, s.kv.ProgressKey(shopID, string(jobType)))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read import progress")
	}
	var record ImportProgress
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decode import progress")
	}
	return &record, nil
}

// Save writes the progress record. Completion records keep the same TTL so
// dashboards can poll the outcome for at least the progress window.
func (s *Store) Save(ctx context.Context, record *ImportProgress) error {
	if record == nil {
		return errors.New("progress record required")
	}
	record.LastUpdatedAt = s.now().UTC()
	encoded, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "encode import progress")
	}
	key := s.kv.ProgressKey(record.ShopID, string(record.JobType))
	if err := s.kv.Set(ctx, key, string(encoded), s.progressTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write import progress")
	}
	return nil
}

// Delete removes the progress record, which ends the chain on its next
// invocation.
func (s *Store) Delete(ctx context.Context, shopID string, jobType enums.ImportJobType) error {
	if err := s.kv.Del(ctx, s.kv.ProgressKey(shopID, string(jobType))); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete import progress")
	}
	return nil
}

// SaveQueue persists the residual FIFO work queue for a chain. Callers pass
// the queue AFTER removing the processed chunk; the original list is never
// rewritten.
func (s *Store) SaveQueue(ctx context.Context, shopID string, jobType enums.ImportJobType, items []string) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "encode work queue")
	}
	key := s.kv.QueueKey(shopID, string(jobType))
	if err := s.kv.Set(ctx, key, string(encoded), s.queueTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write work queue")
	}
	return nil
}

// LoadQueue returns the persisted queue, or nil when absent.
func (s *Store) LoadQueue(ctx context.Context, shopID string, jobType enums.ImportJobType) ([]string, error) {
	raw, err := s.kv.Get(ctx, s.kv.QueueKey(shopID, string(jobType)))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read work queue")
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decode work queue")
	}
	return items, nil
}

// DeleteQueue drops the persisted queue.
func (s *Store) DeleteQueue(ctx context.Context, shopID string, jobType enums.ImportJobType) error {
	if err := s.kv.Del(ctx, s.kv.QueueKey(shopID, string(jobType))); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete work queue")
	}
	return nil
}

// MarkWebhookReceived records the receipt timestamp and bumps the per-shop
// counter. Called on every accepted inbound event.
func (s *Store) MarkWebhookReceived(ctx context.Context, shopID string, eventType enums.WebhookEventType) error {
	now := s.now().UTC()
	stampKey := s.kv.WebhookKey("last_received", shopID)
	if err := s.kv.Set(ctx, stampKey, now.Format(time.RFC3339Nano), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write webhook timestamp")
	}
	typeKey := s.kv.WebhookKey("last_event_type", shopID)
	if err := s.kv.Set(ctx, typeKey, string(eventType), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write webhook event type")
	}
	if _, err := s.kv.IncrWithTTL(ctx, s.kv.CounterKey("webhook_received", shopID), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "bump webhook counter")
	}
	return nil
}

// LastWebhookReceived returns the most recent receipt timestamp; ok is false
// when no event was ever recorded.
func (s *Store) LastWebhookReceived(ctx context.Context, shopID string) (time.Time, bool, error) {
	raw, err := s.kv.Get(ctx, s.kv.WebhookKey("last_received", shopID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read webhook timestamp")
	}
	stamp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "parse webhook timestamp")
	}
	return stamp, true, nil
}

// SaveHealth persists the computed health flag and timestamps for dashboards.
func (s *Store) SaveHealth(ctx context.Context, report HealthReport) error {
	encoded, err := json.Marshal(report)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "encode health report")
	}
	key := s.kv.WebhookKey("health", report.ShopID)
	if err := s.kv.Set(ctx, key, string(encoded), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write health report")
	}
	return nil
}

// GetHealth returns the last persisted health report, or nil when absent.
func (s *Store) GetHealth(ctx context.Context, shopID string) (*HealthReport, error) {
	raw, err := s.kv.Get(ctx, s.kv.WebhookKey("health", shopID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read health report")
	}
	var report HealthReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decode health report")
	}
	return &report, nil
}

// MarkBaselineImported flags that the initial full product import completed
// for the shop. The health loop refuses to reconcile before this exists.
func (s *Store) MarkBaselineImported(ctx context.Context, shopID string) error {
	key := s.kv.WebhookKey("baseline", shopID)
	if err := s.kv.Set(ctx, key, "1", 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write baseline marker")
	}
	return nil
}

// BaselineImported reports whether the initial full import has completed.
func (s *Store) BaselineImported(ctx context.Context, shopID string) (bool, error) {
	_, err := s.kv.Get(ctx, s.kv.WebhookKey("baseline", shopID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "read baseline marker")
	}
	return true, nil
}
