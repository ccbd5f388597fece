package importer

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

type fakeVendor struct {
	products     []printify.Product
	orders       []printify.Order
	pageSize     int
	failFetches  int
	listProducts int
	listOrders   int
}

func (f *fakeVendor) ListProducts(_ context.Context, _ string, page, limit int) (*printify.ProductPage, error) {
	f.listProducts++
	if f.failFetches > 0 {
		f.failFetches--
		return nil, pkgerrors.New(pkgerrors.CodeTransport, "vendor unreachable")
	}
	start, end, lastPage := pageBounds(len(f.products), page, limit)
	return &printify.ProductPage{
		CurrentPage: page,
		LastPage:    lastPage,
		Total:       len(f.products),
		Data:        f.products[start:end],
	}, nil
}

func (f *fakeVendor) ListOrders(_ context.Context, _ string, page, limit int) (*printify.OrderPage, error) {
	f.listOrders++
	if f.failFetches > 0 {
		f.failFetches--
		return nil, pkgerrors.New(pkgerrors.CodeTransport, "vendor unreachable")
	}
	start, end, lastPage := pageBounds(len(f.orders), page, limit)
	return &printify.OrderPage{
		CurrentPage: page,
		LastPage:    lastPage,
		Total:       len(f.orders),
		Data:        f.orders[start:end],
	}, nil
}

func pageBounds(total, page, limit int) (int, int, int) {
	lastPage := (total + limit - 1) / limit
	if lastPage < 1 {
		lastPage = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end, lastPage
}

type fakeProgress struct {
	records  map[string]progress.ImportProgress
	queues   map[string][]string
	baseline map[string]bool
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{
		records:  map[string]progress.ImportProgress{},
		queues:   map[string][]string{},
		baseline: map[string]bool{},
	}
}

func progressKey(shopID string, jobType enums.ImportJobType) string {
	return shopID + ":" + string(jobType)
}

func (f *fakeProgress) Get(_ context.Context, shopID string, jobType enums.ImportJobType) (*progress.ImportProgress, error) {
	record, ok := f.records[progressKey(shopID, jobType)]
	if !ok {
		return nil, nil
	}
	copied := record
	return &copied, nil
}

func (f *fakeProgress) Save(_ context.Context, record *progress.ImportProgress) error {
	f.records[progressKey(record.ShopID, record.JobType)] = *record
	return nil
}

func (f *fakeProgress) Delete(_ context.Context, shopID string, jobType enums.ImportJobType) error {
	delete(f.records, progressKey(shopID, jobType))
	return nil
}

func (f *fakeProgress) SaveQueue(_ context.Context, shopID string, jobType enums.ImportJobType, items []string) error {
	f.queues[progressKey(shopID, jobType)] = append([]string(nil), items...)
	return nil
}

func (f *fakeProgress) LoadQueue(_ context.Context, shopID string, jobType enums.ImportJobType) ([]string, error) {
	return append([]string(nil), f.queues[progressKey(shopID, jobType)]...), nil
}

func (f *fakeProgress) DeleteQueue(_ context.Context, shopID string, jobType enums.ImportJobType) error {
	delete(f.queues, progressKey(shopID, jobType))
	return nil
}

func (f *fakeProgress) MarkBaselineImported(_ context.Context, shopID string) error {
	f.baseline[shopID] = true
	return nil
}

type fakeLease struct {
	held map[string]bool
}

func newFakeLease() *fakeLease { return &fakeLease{held: map[string]bool{}} }

func (f *fakeLease) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLease) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.held, key)
	}
	return nil
}

func (f *fakeLease) LeaseKey(shopID, jobType string) string {
	return "lease:" + shopID + ":" + jobType
}

type fakeQueue struct {
	tasks []scheduler.Task
}

func (f *fakeQueue) Enqueue(_ context.Context, name string, args map[string]string, _ time.Time) error {
	f.tasks = append(f.tasks, scheduler.Task{ID: uuid.NewString(), Name: name, Args: args})
	return nil
}

func (f *fakeQueue) pop() (scheduler.Task, bool) {
	if len(f.tasks) == 0 {
		return scheduler.Task{}, false
	}
	task := f.tasks[0]
	f.tasks = f.tasks[1:]
	return task, true
}

type fakeProductStore struct {
	byPrintifyID map[string]*models.Product
	images       map[uuid.UUID]map[string]bool
	upsertCalls  int
	attachCalls  int
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		byPrintifyID: map[string]*models.Product{},
		images:       map[uuid.UUID]map[string]bool{},
	}
}

func (f *fakeProductStore) FindByPrintifyID(_ context.Context, _, printifyID string) (*models.Product, error) {
	product, ok := f.byPrintifyID[printifyID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (f *fakeProductStore) Upsert(_ context.Context, product *models.Product) (*models.Product, bool, error) {
	f.upsertCalls++
	if existing, ok := f.byPrintifyID[product.PrintifyID]; ok {
		product.ID = existing.ID
		f.byPrintifyID[product.PrintifyID] = product
		return product, false, nil
	}
	product.ID = uuid.New()
	f.byPrintifyID[product.PrintifyID] = product
	return product, true, nil
}

func (f *fakeProductStore) ImageExistsBySourceURL(_ context.Context, productID uuid.UUID, sourceURL string) (bool, error) {
	return f.images[productID][sourceURL], nil
}

func (f *fakeProductStore) AttachImage(_ context.Context, image *models.ProductImage) error {
	f.attachCalls++
	if f.images[image.ProductID] == nil {
		f.images[image.ProductID] = map[string]bool{}
	}
	f.images[image.ProductID][image.SourceURL] = true
	return nil
}

type fakeOrderStore struct {
	byPrintifyID map[string]*models.Order
	upsertCalls  int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{byPrintifyID: map[string]*models.Order{}}
}

func (f *fakeOrderStore) ExistsByPrintifyID(_ context.Context, _, printifyID string) (bool, error) {
	_, ok := f.byPrintifyID[printifyID]
	return ok, nil
}

func (f *fakeOrderStore) Upsert(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	f.upsertCalls++
	created := false
	if _, ok := f.byPrintifyID[order.PrintifyID]; !ok {
		order.ID = uuid.New()
		created = true
	}
	f.byPrintifyID[order.PrintifyID] = order
	return order, created, nil
}

type recordedSyncLog struct {
	entries []synclog.Entry
}

func (r *recordedSyncLog) Record(_ context.Context, entry synclog.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type importHarness struct {
	service  *Service
	vendor   *fakeVendor
	progress *fakeProgress
	lease    *fakeLease
	queue    *fakeQueue
	products *fakeProductStore
	orders   *fakeOrderStore
	syncLog  *recordedSyncLog
}

func newImportHarness(t *testing.T, vendor *fakeVendor) *importHarness {
	t.Helper()
	h := &importHarness{
		vendor:   vendor,
		progress: newFakeProgress(),
		lease:    newFakeLease(),
		queue:    &fakeQueue{},
		products: newFakeProductStore(),
		orders:   newFakeOrderStore(),
		syncLog:  &recordedSyncLog{},
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Vendor:   vendor,
		Progress: h.progress,
		Lease:    h.lease,
		Queue:    h.queue,
		Products: h.products,
		Orders:   h.orders,
		SyncLog:  h.syncLog,
		Metrics:  metrics.NewSyncMetrics(nil),
		Sync:     config.SyncConfig{PageSize: 50},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	h.service = service
	return h
}

// drain pops and executes queued tasks until the queue empties, returning the
// last handler error.
func (h *importHarness) drain(t *testing.T, ctx context.Context) error {
	t.Helper()
	var lastErr error
	for steps := 0; ; steps++ {
		if steps > 1000 {
			t.Fatalf("task chain did not terminate")
		}
		task, ok := h.queue.pop()
		if !ok {
			return lastErr
		}
		var err error
		switch task.Name {
		case TaskProductPage:
			err = h.service.handleProductPage(ctx, task)
		case TaskOrderPage:
			err = h.service.handleOrderPage(ctx, task)
		case TaskImageScan:
			err = h.service.handleImageScan(ctx, task)
		case TaskImageBatch:
			err = h.service.handleImageBatch(ctx, task)
		default:
			t.Fatalf("unknown task %s", task.Name)
		}
		if err != nil {
			lastErr = err
		}
	}
}

func vendorProducts(n int) []printify.Product {
	products := make([]printify.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, printify.Product{
			ID:    fmt.Sprintf("prod-%d", i),
			Title: fmt.Sprintf("Product %d", i),
			Variants: []printify.Variant{
				{ID: int64(i), SKU: fmt.Sprintf("SKU-%d", i), Price: 1999, Enabled: true},
			},
		})
	}
	return products
}

func vendorOrders(n int) []printify.Order {
	orders := make([]printify.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, printify.Order{
			ID:         fmt.Sprintf("order-%d", i),
			Status:     "fulfilled",
			TotalPrice: 2999,
			CreatedAt:  "2026-02-01T10:00:00Z",
		})
	}
	return orders
}

func TestProductImportChainCompletes(t *testing.T) {
	vendor := &fakeVendor{products: vendorProducts(120)}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.drain(t, ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	record, err := h.service.Progress(ctx, "shop-1", enums.JobTypeProduct)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if record == nil || record.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed chain, got %+v", record)
	}
	if record.Processed != 120 || record.Failed != 0 {
		t.Fatalf("counters wrong: processed=%d failed=%d", record.Processed, record.Failed)
	}
	if record.Percentage != 100 {
		t.Fatalf("percentage should be 100 at completion, got %d", record.Percentage)
	}
	if record.Cursor != 3 || record.LastPage != 3 {
		t.Fatalf("pagination state wrong: cursor=%d lastPage=%d", record.Cursor, record.LastPage)
	}
	if vendor.listProducts != 3 {
		t.Fatalf("expected 3 page fetches, got %d", vendor.listProducts)
	}
	if len(h.products.byPrintifyID) != 120 {
		t.Fatalf("expected 120 local products, got %d", len(h.products.byPrintifyID))
	}
	if !h.progress.baseline["shop-1"] {
		t.Fatalf("baseline marker not set after full product import")
	}
	if len(h.lease.held) != 0 {
		t.Fatalf("lease not released: %v", h.lease.held)
	}
	if len(h.syncLog.entries) != 120 {
		t.Fatalf("expected 120 sync log entries, got %d", len(h.syncLog.entries))
	}
	for _, entry := range h.syncLog.entries {
		if entry.SyncType != enums.SyncTypeCreate || entry.Status != enums.SyncStatusSuccess {
			t.Fatalf("unexpected sync log entry: %+v", entry)
		}
		if entry.EntityID == nil {
			t.Fatalf("sync log entry missing entity id: %+v", entry)
		}
	}
}

func TestStartConflictsWhileChainActive(t *testing.T) {
	h := newImportHarness(t, &fakeVendor{products: vendorProducts(5)})
	ctx := context.Background()

	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	err := h.service.StartProductImport(ctx, "shop-1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// a different job type for the same shop is not blocked
	if err := h.service.StartOrderImport(ctx, "shop-1"); err != nil {
		t.Fatalf("order start blocked by product lease: %v", err)
	}
}

func TestPageFetchRetriesThenFailsChain(t *testing.T) {
	vendor := &fakeVendor{products: vendorProducts(10), failFetches: 100}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := h.drain(t, ctx)
	if err == nil {
		t.Fatalf("expected terminal fetch error")
	}

	record, getErr := h.service.Progress(ctx, "shop-1", enums.JobTypeProduct)
	if getErr != nil {
		t.Fatalf("progress: %v", getErr)
	}
	if record == nil || record.Status != enums.JobStatusFailed {
		t.Fatalf("expected failed chain, got %+v", record)
	}
	// bound of 3 retries means 4 fetch attempts total
	if vendor.listProducts != 4 {
		t.Fatalf("expected 4 fetch attempts, got %d", vendor.listProducts)
	}
	if len(h.lease.held) != 0 {
		t.Fatalf("lease not released after failure: %v", h.lease.held)
	}

	// the shop is free for a fresh attempt
	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}
}

func TestTransientFetchFailureRecovers(t *testing.T) {
	vendor := &fakeVendor{products: vendorProducts(10), failFetches: 2}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.drain(t, ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	record, err := h.service.Progress(ctx, "shop-1", enums.JobTypeProduct)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if record == nil || record.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed chain after transient failures, got %+v", record)
	}
	if record.FetchAttempts != 0 {
		t.Fatalf("fetch attempts should reset on success, got %d", record.FetchAttempts)
	}
	if record.Processed != 10 {
		t.Fatalf("expected 10 processed, got %d", record.Processed)
	}
}

func TestOrderImportSkipsExistingOrders(t *testing.T) {
	vendor := &fakeVendor{orders: vendorOrders(60)}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	// first 20 orders already imported
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("order-%d", i)
		h.orders.byPrintifyID[id] = &models.Order{ID: uuid.New(), PrintifyID: id}
	}

	if err := h.service.StartOrderImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.drain(t, ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	record, err := h.service.Progress(ctx, "shop-1", enums.JobTypeOrder)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if record == nil || record.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed chain, got %+v", record)
	}
	if record.Processed != 60 {
		t.Fatalf("existing orders must still count as processed, got %d", record.Processed)
	}
	if h.orders.upsertCalls != 40 {
		t.Fatalf("expected 40 upserts for the new orders, got %d", h.orders.upsertCalls)
	}
	// skipped orders leave no sync log trace
	if len(h.syncLog.entries) != 40 {
		t.Fatalf("expected 40 sync log entries, got %d", len(h.syncLog.entries))
	}
	if vo := h.orders.byPrintifyID["order-30"]; vo == nil || vo.VendorCreatedAt == nil {
		t.Fatalf("vendor creation time not carried over: %+v", vo)
	}
}

func TestProductImagesDrainThroughBatchChain(t *testing.T) {
	products := vendorProducts(5)
	for i := range products {
		products[i].Images = []printify.Image{
			{Src: fmt.Sprintf("https://img.example/%d-a.png", i)},
			{Src: fmt.Sprintf("https://img.example/%d-b.png", i)},
			// duplicate source, must be deduplicated at attach time
			{Src: fmt.Sprintf("https://img.example/%d-a.png", i)},
		}
	}
	h := newImportHarness(t, &fakeVendor{products: products})
	ctx := context.Background()

	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.drain(t, ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	imageRecord, err := h.service.Progress(ctx, "shop-1", enums.JobTypeImage)
	if err != nil {
		t.Fatalf("image progress: %v", err)
	}
	if imageRecord == nil || imageRecord.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed image chain, got %+v", imageRecord)
	}
	// 15 descriptors queued, 5 of them duplicates skipped at attach time
	if imageRecord.Processed != 15 {
		t.Fatalf("expected 15 descriptors processed, got %d", imageRecord.Processed)
	}
	if h.products.attachCalls != 10 {
		t.Fatalf("expected 10 attaches after dedupe, got %d", h.products.attachCalls)
	}
	if _, ok := h.progress.queues[progressKey("shop-1", enums.JobTypeImage)]; ok {
		t.Fatalf("drained image queue should be deleted")
	}
	if len(h.lease.held) != 0 {
		t.Fatalf("leases not released: %v", h.lease.held)
	}
}

func TestImageScanQueuesOnlyKnownProducts(t *testing.T) {
	products := vendorProducts(3)
	for i := range products {
		products[i].Images = []printify.Image{{Src: fmt.Sprintf("https://img.example/%d.png", i)}}
	}
	h := newImportHarness(t, &fakeVendor{products: products})
	ctx := context.Background()

	// only two of the three vendor products exist locally
	for _, id := range []string{"prod-0", "prod-2"} {
		h.products.byPrintifyID[id] = &models.Product{ID: uuid.New(), PrintifyID: id, ShopID: "shop-1"}
	}

	if err := h.service.StartImageImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.drain(t, ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	record, err := h.service.Progress(ctx, "shop-1", enums.JobTypeImage)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if record == nil || record.Status != enums.JobStatusCompleted {
		t.Fatalf("expected completed chain, got %+v", record)
	}
	if record.Total != 2 || record.Processed != 2 {
		t.Fatalf("expected 2 queued and processed descriptors, got total=%d processed=%d", record.Total, record.Processed)
	}
	if h.products.attachCalls != 2 {
		t.Fatalf("expected 2 attaches, got %d", h.products.attachCalls)
	}
}

func TestDuplicatePageDeliveryIsDropped(t *testing.T) {
	vendor := &fakeVendor{products: vendorProducts(5)}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	if err := h.progress.Save(ctx, &progress.ImportProgress{
		ShopID:  "shop-1",
		JobType: enums.JobTypeProduct,
		Cursor:  2,
		Status:  enums.JobStatusRunning,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	task := scheduler.Task{Name: TaskProductPage, Args: map[string]string{argShop: "shop-1", argPage: "2"}}
	if err := h.service.handleProductPage(ctx, task); err != nil {
		t.Fatalf("duplicate delivery must be acknowledged: %v", err)
	}
	if vendor.listProducts != 0 {
		t.Fatalf("duplicate page must not hit the vendor")
	}
}

func TestTaskWithoutActiveChainIsDropped(t *testing.T) {
	vendor := &fakeVendor{products: vendorProducts(5)}
	h := newImportHarness(t, vendor)
	ctx := context.Background()

	task := scheduler.Task{Name: TaskProductPage, Args: map[string]string{argShop: "shop-1", argPage: "1"}}
	if err := h.service.handleProductPage(ctx, task); err != nil {
		t.Fatalf("orphan task must be acknowledged: %v", err)
	}
	if vendor.listProducts != 0 {
		t.Fatalf("orphan task must not hit the vendor")
	}
}

func TestCatchUpSyncSkipsBusyChains(t *testing.T) {
	h := newImportHarness(t, &fakeVendor{products: vendorProducts(5), orders: vendorOrders(5)})
	ctx := context.Background()

	// a product chain is already running; catch-up must leave it alone and
	// still seed the order chain
	if err := h.service.StartProductImport(ctx, "shop-1"); err != nil {
		t.Fatalf("start product: %v", err)
	}
	queuedBefore := len(h.queue.tasks)

	if err := h.service.CatchUpSync(ctx, "shop-1"); err != nil {
		t.Fatalf("catch-up: %v", err)
	}
	if len(h.queue.tasks) != queuedBefore+1 {
		t.Fatalf("expected exactly one new seeded task, got %d", len(h.queue.tasks)-queuedBefore)
	}
	seeded := h.queue.tasks[len(h.queue.tasks)-1]
	if seeded.Name != TaskOrderPage {
		t.Fatalf("expected order chain seeded, got %s", seeded.Name)
	}
	if seeded.Arg(argCatchUp) == "" {
		t.Fatalf("catch-up seed missing catchup arg")
	}
}

func TestStartImportCatchUpTagsChain(t *testing.T) {
	h := newImportHarness(t, &fakeVendor{products: vendorProducts(5)})
	ctx := context.Background()

	if err := h.service.StartImport(ctx, "shop-1", enums.JobTypeProduct, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	seeded, ok := h.queue.pop()
	if !ok {
		t.Fatal("expected a seeded task")
	}
	if seeded.Name != TaskProductPage || seeded.Arg(argCatchUp) == "" {
		t.Fatalf("expected catch-up tagged product seed, got %+v", seeded)
	}
}

func TestRetryKeepsCatchUpTag(t *testing.T) {
	h := newImportHarness(t, &fakeVendor{products: vendorProducts(5), failFetches: 1})
	ctx := context.Background()

	if err := h.service.StartImport(ctx, "shop-1", enums.JobTypeProduct, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	seeded, ok := h.queue.pop()
	if !ok {
		t.Fatal("expected a seeded task")
	}
	if err := h.service.handleProductPage(ctx, seeded); err != nil {
		t.Fatalf("first page attempt should retry, not fail: %v", err)
	}
	retried, ok := h.queue.pop()
	if !ok {
		t.Fatal("expected the same page re-enqueued")
	}
	if retried.Arg(argPage) != "1" {
		t.Fatalf("retry should target the same page, got %q", retried.Arg(argPage))
	}
	if retried.Arg(argCatchUp) == "" {
		t.Fatal("retry dropped the catch-up tag")
	}
}

func TestStartRejectsEmptyShop(t *testing.T) {
	h := newImportHarness(t, &fakeVendor{})
	err := h.service.StartProductImport(context.Background(), "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		page, lastPage, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{5, 3, 100},
	}
	for _, tc := range cases {
		if got := percentage(tc.page, tc.lastPage); got != tc.want {
			t.Fatalf("percentage(%d, %d) = %d, want %d", tc.page, tc.lastPage, got, tc.want)
		}
	}
}
