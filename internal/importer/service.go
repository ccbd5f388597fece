package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/internal/scheduler"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/config"
	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
	"github.com/printloom/printsync-backend/pkg/printify"
)

// QueueName is the delayed queue all import tasks flow through.
const QueueName = "imports"

// Task names dispatched through the delayed queue.
const (
	TaskProductPage = "import:product-page"
	TaskOrderPage   = "import:order-page"
	TaskImageScan   = "import:image-scan"
	TaskImageBatch  = "import:image-batch"
)

const (
	argShop    = "shop"
	argPage    = "page"
	argCatchUp = "catchup"
)

// vendorClient is the Printify surface the pipeline consumes.
type vendorClient interface {
	ListProducts(ctx context.Context, shopID string, page, limit int) (*printify.ProductPage, error)
	ListOrders(ctx context.Context, shopID string, page, limit int) (*printify.OrderPage, error)
}

// progressStore persists chain state between invocations.
type progressStore interface {
	Get(ctx context.Context, shopID string, jobType enums.ImportJobType) (*progress.ImportProgress, error)
	Save(ctx context.Context, record *progress.ImportProgress) error
	Delete(ctx context.Context, shopID string, jobType enums.ImportJobType) error
	SaveQueue(ctx context.Context, shopID string, jobType enums.ImportJobType, items []string) error
	LoadQueue(ctx context.Context, shopID string, jobType enums.ImportJobType) ([]string, error)
	DeleteQueue(ctx context.Context, shopID string, jobType enums.ImportJobType) error
	MarkBaselineImported(ctx context.Context, shopID string) error
}

// leaseStore grants the per-(shop, job type) mutual exclusion lock.
type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LeaseKey(shopID, jobType string) string
}

// enqueuer schedules a successor task; at-least-once semantics assumed.
type enqueuer interface {
	Enqueue(ctx context.Context, name string, args map[string]string, notBefore time.Time) error
}

// productStore and orderStore are the narrow upsert-by-external-id surfaces
// the pipeline needs from the commerce repos.
type productStore interface {
	FindByPrintifyID(ctx context.Context, shopID, printifyID string) (*models.Product, error)
	Upsert(ctx context.Context, product *models.Product) (*models.Product, bool, error)
	ImageExistsBySourceURL(ctx context.Context, productID uuid.UUID, sourceURL string) (bool, error)
	AttachImage(ctx context.Context, image *models.ProductImage) error
}

type orderStore interface {
	ExistsByPrintifyID(ctx context.Context, shopID, printifyID string) (bool, error)
	Upsert(ctx context.Context, order *models.Order) (*models.Order, bool, error)
}

// ServiceParams configure the batch import pipeline.
type ServiceParams struct {
	Logger   *logger.Logger
	Vendor   vendorClient
	Progress progressStore
	Lease    leaseStore
	Queue    enqueuer
	Products productStore
	Orders   orderStore
	SyncLog  synclog.Recorder
	Metrics  *metrics.SyncMetrics
	Sync     config.SyncConfig
}

// Service owns the resumable import chains: one page/batch per invocation,
// state reconstructed from the progress store each time, successor enqueued
// explicitly. At most one chain per (shop, job type) runs at a time, enforced
// by a redis lease taken before the chain is seeded.
type Service struct {
	logg     *logger.Logger
	vendor   vendorClient
	progress progressStore
	lease    leaseStore
	queue    enqueuer
	products productStore
	orders   orderStore
	syncLog  synclog.Recorder
	metrics  *metrics.SyncMetrics
	cfg      config.SyncConfig
	now      func() time.Time
}

// NewService builds the import pipeline.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Vendor == nil {
		return nil, errors.New("vendor client required")
	}
	if params.Progress == nil {
		return nil, errors.New("progress store required")
	}
	if params.Lease == nil {
		return nil, errors.New("lease store required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue required")
	}
	if params.Products == nil {
		return nil, errors.New("product store required")
	}
	if params.Orders == nil {
		return nil, errors.New("order store required")
	}
	if params.SyncLog == nil {
		return nil, errors.New("sync log recorder required")
	}
	cfg := params.Sync
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 10
	}
	if cfg.ImageBatchSize <= 0 {
		cfg.ImageBatchSize = 10
	}
	if cfg.SeedDelay <= 0 {
		cfg.SeedDelay = 5 * time.Second
	}
	if cfg.InterPageDelay <= 0 {
		cfg.InterPageDelay = 30 * time.Second
	}
	if cfg.FetchRetryBound <= 0 {
		cfg.FetchRetryBound = 3
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Hour
	}
	return &Service{
		logg:     params.Logger,
		vendor:   params.Vendor,
		progress: params.Progress,
		lease:    params.Lease,
		queue:    params.Queue,
		products: params.Products,
		orders:   params.Orders,
		syncLog:  params.SyncLog,
		metrics:  params.Metrics,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// RegisterHandlers binds the task handlers into the scheduler registry.
func (s *Service) RegisterHandlers(registry *scheduler.Registry) {
	registry.Register(TaskProductPage, s.handleProductPage)
	registry.Register(TaskOrderPage, s.handleOrderPage)
	registry.Register(TaskImageScan, s.handleImageScan)
	registry.Register(TaskImageBatch, s.handleImageBatch)
}

// StartImport seeds an import chain for the shop and job type. Catch-up
// chains carry the flag on every task they spawn so their page activity is
// attributable in logs.
func (s *Service) StartImport(ctx context.Context, shopID string, jobType enums.ImportJobType, catchUp bool) error {
	switch jobType {
	case enums.JobTypeProduct:
		return s.start(ctx, shopID, jobType, TaskProductPage, catchUp)
	case enums.JobTypeOrder:
		return s.start(ctx, shopID, jobType, TaskOrderPage, catchUp)
	case enums.JobTypeImage:
		// a scan phase walks the vendor catalog collecting image descriptors
		// into the persisted queue, then batch invocations drain it
		return s.start(ctx, shopID, jobType, TaskImageScan, catchUp)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown job type %q", jobType))
}

// StartProductImport seeds a product import chain for the shop.
func (s *Service) StartProductImport(ctx context.Context, shopID string) error {
	return s.StartImport(ctx, shopID, enums.JobTypeProduct, false)
}

// StartOrderImport seeds an order import chain for the shop.
func (s *Service) StartOrderImport(ctx context.Context, shopID string) error {
	return s.StartImport(ctx, shopID, enums.JobTypeOrder, false)
}

// StartImageImport seeds an image import chain.
func (s *Service) StartImageImport(ctx context.Context, shopID string) error {
	return s.StartImport(ctx, shopID, enums.JobTypeImage, false)
}

// CatchUpSync re-scans products and orders for the shop. Safe to run against
// a fully imported shop: every downstream write is an upsert or existence
// check keyed by external ID. Chains already in flight are left alone.
func (s *Service) CatchUpSync(ctx context.Context, shopID string) error {
	var errs error
	for jobType, task := range map[enums.ImportJobType]string{
		enums.JobTypeProduct: TaskProductPage,
		enums.JobTypeOrder:   TaskOrderPage,
	} {
		err := s.start(ctx, shopID, jobType, task, true)
		if err == nil {
			continue
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			continue
		}
		errs = errors.Join(errs, err)
	}
	return errs
}

// SyncProduct applies a single vendor product to the local store, the same
// path a full import page takes. Used by webhook-driven updates.
func (s *Service) SyncProduct(ctx context.Context, shopID string, vendorProduct printify.Product) error {
	return s.importProduct(ctx, shopID, vendorProduct)
}

// SyncOrder applies a single vendor order to the local store.
func (s *Service) SyncOrder(ctx context.Context, shopID string, vendorOrder printify.Order) error {
	return s.importOrder(ctx, shopID, vendorOrder)
}

// Progress returns the current chain state for polling.
func (s *Service) Progress(ctx context.Context, shopID string, jobType enums.ImportJobType) (*progress.ImportProgress, error) {
	return s.progress.Get(ctx, shopID, jobType)
}

func (s *Service) start(ctx context.Context, shopID string, jobType enums.ImportJobType, task string, catchUp bool) error {
	if shopID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	acquired, err := s.acquireLease(ctx, shopID, jobType)
	if err != nil {
		return err
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("%s import already running for shop %s", jobType, shopID))
	}

	record := &progress.ImportProgress{
		ShopID:    shopID,
		JobType:   jobType,
		Status:    enums.JobStatusScheduled,
		StartedAt: s.now().UTC(),
	}
	if err := s.progress.Save(ctx, record); err != nil {
		s.releaseLease(ctx, shopID, jobType)
		return err
	}
	if jobType == enums.JobTypeImage {
		if err := s.progress.SaveQueue(ctx, shopID, jobType, []string{}); err != nil {
			s.releaseLease(ctx, shopID, jobType)
			return err
		}
	}

	args := map[string]string{argShop: shopID, argPage: "1"}
	if catchUp {
		args[argCatchUp] = "1"
	}
	// the seed delay decouples chain execution from the triggering request
	if err := s.queue.Enqueue(ctx, task, args, s.now().Add(s.cfg.SeedDelay)); err != nil {
		s.releaseLease(ctx, shopID, jobType)
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  shopID,
		"job_type": string(jobType),
		"catch_up": catchUp,
	})
	s.logg.Info(logCtx, "import chain seeded")
	return nil
}

func (s *Service) acquireLease(ctx context.Context, shopID string, jobType enums.ImportJobType) (bool, error) {
	key := s.lease.LeaseKey(shopID, string(jobType))
	acquired, err := s.lease.SetNX(ctx, key, uuid.NewString(), s.cfg.LeaseTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "acquire import lease")
	}
	return acquired, nil
}

func (s *Service) releaseLease(ctx context.Context, shopID string, jobType enums.ImportJobType) {
	key := s.lease.LeaseKey(shopID, string(jobType))
	if err := s.lease.Del(ctx, key); err != nil {
		s.logg.Error(ctx, "release import lease failed", err)
	}
}

// finishChain records the terminal status and releases the lease. The
// completion record stays in the progress store for dashboard polling until
// its TTL lapses.
func (s *Service) finishChain(ctx context.Context, record *progress.ImportProgress, status enums.ImportJobStatus) error {
	record.Status = status
	if status == enums.JobStatusCompleted {
		record.Percentage = 100
	}
	err := s.progress.Save(ctx, record)
	s.releaseLease(ctx, record.ShopID, record.JobType)
	return err
}

// retryOrFail handles a page-fetch failure: the same page is re-enqueued with
// exponential backoff until the bound is hit, after which the chain is marked
// failed rather than silently abandoned.
func (s *Service) retryOrFail(ctx context.Context, record *progress.ImportProgress, task scheduler.Task, page int, fetchErr error) error {
	record.FetchAttempts++
	if record.FetchAttempts > s.cfg.FetchRetryBound {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"shop_id": record.ShopID,
			"page":    page,
		})
		s.logg.Error(logCtx, "page fetch retries exhausted, failing chain", fetchErr)
		if err := s.finishChain(ctx, record, enums.JobStatusFailed); err != nil {
			return err
		}
		return fetchErr
	}
	if err := s.progress.Save(ctx, record); err != nil {
		return err
	}
	backoff := s.cfg.InterPageDelay * time.Duration(1<<(record.FetchAttempts-1))
	args := map[string]string{argShop: record.ShopID, argPage: fmt.Sprintf("%d", page)}
	if task.Arg(argCatchUp) != "" {
		args[argCatchUp] = task.Arg(argCatchUp)
	}
	if err := s.queue.Enqueue(ctx, task.Name, args, s.now().Add(backoff)); err != nil {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id": record.ShopID,
		"page":    page,
		"attempt": record.FetchAttempts,
	})
	s.logg.Warn(logCtx, fmt.Sprintf("page fetch failed, retrying: %v", fetchErr))
	return nil
}

func percentage(page, lastPage int) int {
	if lastPage <= 0 {
		return 0
	}
	pct := (page*100 + lastPage/2) / lastPage
	if pct > 100 {
		pct = 100
	}
	return pct
}
