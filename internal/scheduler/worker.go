package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultClaimLimit   = 10
)

// Handler executes one claimed task.
type Handler func(ctx context.Context, task Task) error

// Registry maps task names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task name.
func (r *Registry) Register(name string, handler Handler) {
	if name == "" || handler == nil {
		return
	}
	r.handlers[name] = handler
}

// Lookup returns the handler for a task name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// WorkerParams configure the queue poller.
type WorkerParams struct {
	Logger       *logger.Logger
	Queue        *Queue
	Registry     *Registry
	Metrics      *metrics.SyncMetrics
	PollInterval time.Duration
	ClaimLimit   int64
}

// Worker drains the delayed queue and dispatches tasks to handlers.
type Worker struct {
	logg         *logger.Logger
	queue        *Queue
	registry     *Registry
	metrics      *metrics.SyncMetrics
	pollInterval time.Duration
	claimLimit   int64
	now          func() time.Time
}

// NewWorker builds a worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue required")
	}
	if params.Registry == nil {
		return nil, errors.New("registry required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	limit := params.ClaimLimit
	if limit <= 0 {
		limit = defaultClaimLimit
	}
	return &Worker{
		logg:         params.Logger,
		queue:        params.Queue,
		registry:     params.Registry,
		metrics:      params.Metrics,
		pollInterval: interval,
		claimLimit:   limit,
		now:          time.Now,
	}, nil
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "scheduler worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logg.Error(ctx, "drain cycle failed", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	tasks, err := w.queue.ClaimDue(ctx, w.now(), w.claimLimit)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		w.runTask(ctx, task)
	}
	return nil
}

func (w *Worker) runTask(ctx context.Context, task Task) {
	taskCtx := w.logg.WithFields(ctx, map[string]any{
		"task":    task.Name,
		"task_id": task.ID,
	})
	handler, ok := w.registry.Lookup(task.Name)
	if !ok {
		w.logg.Warn(taskCtx, "no handler registered for task")
		return
	}
	start := w.now()
	err := w.safeRun(taskCtx, handler, task)
	duration := time.Since(start)
	if w.metrics != nil {
		w.metrics.ObserveTaskDuration(task.Name, duration)
	}
	taskCtx = w.logg.WithField(taskCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		w.logg.Error(taskCtx, "task failed", err)
		if w.metrics != nil {
			w.metrics.IncTaskFailure(task.Name)
		}
		return
	}
	w.logg.Info(taskCtx, "task completed")
	if w.metrics != nil {
		w.metrics.IncTaskSuccess(task.Name)
	}
}

func (w *Worker) safeRun(ctx context.Context, handler Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return handler(ctx, task)
}
