package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
)

// Task is one unit of scheduled work. Args are flat strings so the envelope
// survives serialization without surprises.
type Task struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// Arg returns the named argument or an empty string.
func (t Task) Arg(key string) string {
	if t.Args == nil {
		return ""
	}
	return t.Args[key]
}

// zStore defines the redis surface backing the delayed queue.
type zStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key, min, max string, count int64) ([]string, error)
	ZRem(ctx context.Context, key, member string) (bool, error)
	ScheduleKey(queue string) string
}

// Queue is a durable delayed work queue on a Redis sorted set: members are
// JSON task envelopes scored by their due time. Claiming is ZRem on the raw
// member, so exactly one poller wins each task; execution is at-least-once
// because a claimer that dies mid-task loses the work.
type Queue struct {
	store zStore
	name  string
}

// NewQueue builds a queue bound to the named sorted set.
func NewQueue(store zStore, name string) (*Queue, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if name == "" {
		return nil, errors.New("queue name required")
	}
	return &Queue{store: store, name: name}, nil
}

// Enqueue schedules the task to run at or after notBefore.
func (q *Queue) Enqueue(ctx context.Context, name string, args map[string]string, notBefore time.Time) error {
	if name == "" {
		return errors.New("task name required")
	}
	envelope := Task{
		ID:   uuid.NewString(),
		Name: name,
		Args: args,
	}
	member, err := json.Marshal(envelope)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "encode task")
	}
	score := float64(notBefore.UnixMilli())
	if err := q.store.ZAdd(ctx, q.store.ScheduleKey(q.name), score, string(member)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "enqueue task")
	}
	return nil
}

// ClaimDue removes and returns up to limit tasks whose due time has passed.
// Members another poller removed first are skipped.
func (q *Queue) ClaimDue(ctx context.Context, now time.Time, limit int64) ([]Task, error) {
	key := q.store.ScheduleKey(q.name)
	max := strconv.FormatInt(now.UnixMilli(), 10)
	members, err := q.store.ZRangeByScore(ctx, key, "-inf", max, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "scan due tasks")
	}
	claimed := make([]Task, 0, len(members))
	for _, member := range members {
		won, err := q.store.ZRem(ctx, key, member)
		if err != nil {
			return claimed, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "claim task")
		}
		if !won {
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			// a malformed member is dropped rather than poisoning the queue
			continue
		}
		claimed = append(claimed, task)
	}
	return claimed, nil
}
