package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records import task and webhook activity.
type SyncMetrics struct {
	taskDuration *prometheus.HistogramVec
	taskSuccess  *prometheus.CounterVec
	taskFailure  *prometheus.CounterVec
	itemsOK      *prometheus.CounterVec
	itemsFailed  *prometheus.CounterVec
	webhooksIn   *prometheus.CounterVec
	webhooksBad  *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	taskDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_task_duration_seconds",
		Help:    "Duration of import task invocations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
	taskSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_task_success",
		Help: "Successful import task invocations.",
	}, []string{"task"})
	taskFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_task_failure",
		Help: "Failed import task invocations.",
	}, []string{"task"})
	itemsOK := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_items_processed",
		Help: "Items imported successfully.",
	}, []string{"task"})
	itemsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_items_failed",
		Help: "Items that failed to import.",
	}, []string{"task"})
	webhooksIn := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Accepted inbound webhook events.",
	}, []string{"event"})
	webhooksBad := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_rejected",
		Help: "Rejected inbound webhook events.",
	}, []string{"reason"})
	reg.MustRegister(taskDuration, taskSuccess, taskFailure, itemsOK, itemsFailed, webhooksIn, webhooksBad)
	return &SyncMetrics{
		taskDuration: taskDuration,
		taskSuccess:  taskSuccess,
		taskFailure:  taskFailure,
		itemsOK:      itemsOK,
		itemsFailed:  itemsFailed,
		webhooksIn:   webhooksIn,
		webhooksBad:  webhooksBad,
	}
}

// ObserveTaskDuration records the duration for the named task.
func (m *SyncMetrics) ObserveTaskDuration(task string, duration time.Duration) {
	if m == nil || m.taskDuration == nil {
		return
	}
	m.taskDuration.WithLabelValues(normalizeLabel(task)).Observe(duration.Seconds())
}

// IncTaskSuccess increments the success counter for the named task.
func (m *SyncMetrics) IncTaskSuccess(task string) {
	if m == nil || m.taskSuccess == nil {
		return
	}
	m.taskSuccess.WithLabelValues(normalizeLabel(task)).Inc()
}

// IncTaskFailure increments the failure counter for the named task.
func (m *SyncMetrics) IncTaskFailure(task string) {
	if m == nil || m.taskFailure == nil {
		return
	}
	m.taskFailure.WithLabelValues(normalizeLabel(task)).Inc()
}

// AddItemsProcessed adds to the processed-item counter for the named task.
func (m *SyncMetrics) AddItemsProcessed(task string, n int) {
	if m == nil || m.itemsOK == nil || n <= 0 {
		return
	}
	m.itemsOK.WithLabelValues(normalizeLabel(task)).Add(float64(n))
}

// AddItemsFailed adds to the failed-item counter for the named task.
func (m *SyncMetrics) AddItemsFailed(task string, n int) {
	if m == nil || m.itemsFailed == nil || n <= 0 {
		return
	}
	m.itemsFailed.WithLabelValues(normalizeLabel(task)).Add(float64(n))
}

// IncWebhookReceived counts an accepted inbound event.
func (m *SyncMetrics) IncWebhookReceived(event string) {
	if m == nil || m.webhooksIn == nil {
		return
	}
	m.webhooksIn.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncWebhookRejected counts a rejected inbound event by reason.
func (m *SyncMetrics) IncWebhookRejected(reason string) {
	if m == nil || m.webhooksBad == nil {
		return
	}
	m.webhooksBad.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
