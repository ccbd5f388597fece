package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/internal/scheduler"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/db"
	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/printify"
)

// imageDescriptor is one unit of image work in the persisted FIFO queue.
type imageDescriptor struct {
	ProductID string `json:"productId"`
	SourceURL string `json:"sourceUrl"`
	Position  int    `json:"position"`
}

func encodeDescriptor(d imageDescriptor) (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode image descriptor")
	}
	return string(raw), nil
}

func decodeDescriptor(raw string) (imageDescriptor, error) {
	var d imageDescriptor
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return d, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode image descriptor")
	}
	return d, nil
}

// appendImageWork pushes a product's image descriptors onto the persisted
// queue and makes sure a chain is draining it. Called from the product import
// after each upsert; the source-URL dedupe at attach time keeps repeated
// appends harmless.
func (s *Service) appendImageWork(ctx context.Context, shopID, productID string, images []printify.Image) error {
	pending, err := s.progress.LoadQueue(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	appended := 0
	for position, image := range images {
		if image.Src == "" {
			continue
		}
		raw, err := encodeDescriptor(imageDescriptor{
			ProductID: productID,
			SourceURL: image.Src,
			Position:  position,
		})
		if err != nil {
			return err
		}
		pending = append(pending, raw)
		appended++
	}
	if appended == 0 {
		return nil
	}
	if err := s.progress.SaveQueue(ctx, shopID, enums.JobTypeImage, pending); err != nil {
		return err
	}
	return s.ensureImageChain(ctx, shopID, appended, len(pending))
}

// ensureImageChain starts a draining chain if none is active. When a chain is
// already running it only grows the live total so the percentage stays honest.
func (s *Service) ensureImageChain(ctx context.Context, shopID string, appended, queueLen int) error {
	record, err := s.progress.Get(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	if record != nil && !record.Status.Terminal() {
		record.Total += appended
		return s.progress.Save(ctx, record)
	}

	acquired, err := s.acquireLease(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	record = &progress.ImportProgress{
		ShopID:     shopID,
		JobType:    enums.JobTypeImage,
		Status:     enums.JobStatusScheduled,
		Total:      queueLen,
		TotalKnown: true,
		StartedAt:  s.now().UTC(),
	}
	if err := s.progress.Save(ctx, record); err != nil {
		s.releaseLease(ctx, shopID, enums.JobTypeImage)
		return err
	}
	args := map[string]string{argShop: shopID}
	if err := s.queue.Enqueue(ctx, TaskImageBatch, args, s.now().Add(s.cfg.SeedDelay)); err != nil {
		s.releaseLease(ctx, shopID, enums.JobTypeImage)
		return err
	}
	return nil
}

// handleImageScan walks one vendor catalog page and queues every image of
// every locally known product. Used by the standalone image import trigger;
// once the last page is scanned the draining phase takes over.
func (s *Service) handleImageScan(ctx context.Context, task scheduler.Task) error {
	shopID := task.Arg(argShop)
	page, err := strconv.Atoi(task.Arg(argPage))
	if err != nil || shopID == "" || page < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "image scan task requires shop and page args")
	}

	record, err := s.progress.Get(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		s.logg.Warn(s.logg.WithShopID(ctx, shopID), "image scan task without active chain, dropping")
		return nil
	}
	if page <= record.Cursor {
		return nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  shopID,
		"job_type": string(enums.JobTypeImage),
		"page":     page,
	})

	vendorPage, err := s.vendor.ListProducts(ctx, shopID, page, s.cfg.PageSize)
	if err != nil {
		return s.retryOrFail(ctx, record, task, page, err)
	}

	pending, err := s.progress.LoadQueue(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	appended := 0
	for _, vendorProduct := range vendorPage.Data {
		local, err := s.products.FindByPrintifyID(ctx, shopID, vendorProduct.ID)
		if err != nil {
			if db.IsNotFound(err) {
				// not imported yet, the product chain will queue its images
				continue
			}
			s.logg.Error(logCtx, fmt.Sprintf("resolve product %s failed", vendorProduct.ID), err)
			continue
		}
		for position, image := range vendorProduct.Images {
			if image.Src == "" {
				continue
			}
			raw, err := encodeDescriptor(imageDescriptor{
				ProductID: local.ID.String(),
				SourceURL: image.Src,
				Position:  position,
			})
			if err != nil {
				return err
			}
			pending = append(pending, raw)
			appended++
		}
	}
	if err := s.progress.SaveQueue(ctx, shopID, enums.JobTypeImage, pending); err != nil {
		return err
	}

	record.Status = enums.JobStatusRunning
	record.Cursor = page
	record.Total += appended
	record.FetchAttempts = 0

	if page < vendorPage.LastPage {
		if err := s.progress.Save(ctx, record); err != nil {
			return err
		}
		args := map[string]string{argShop: shopID, argPage: strconv.Itoa(page + 1)}
		return s.queue.Enqueue(ctx, TaskImageScan, args, s.now().Add(s.cfg.InterPageDelay))
	}

	record.TotalKnown = true
	if err := s.progress.Save(ctx, record); err != nil {
		return err
	}
	s.logg.Info(logCtx, fmt.Sprintf("image scan completed, queued=%d", record.Total))
	return s.queue.Enqueue(ctx, TaskImageBatch, map[string]string{argShop: shopID}, s.now().Add(s.cfg.SeedDelay))
}

// handleImageBatch drains one chunk from the persisted queue, writes the
// residual back, and requeues itself until the queue is empty.
func (s *Service) handleImageBatch(ctx context.Context, task scheduler.Task) error {
	shopID := task.Arg(argShop)
	if shopID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "image batch task requires shop arg")
	}

	record, err := s.progress.Get(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		s.logg.Warn(s.logg.WithShopID(ctx, shopID), "image batch task without active chain, dropping")
		return nil
	}

	pending, err := s.progress.LoadQueue(ctx, shopID, enums.JobTypeImage)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return s.finishImageChain(ctx, record)
	}

	batch := pending
	if len(batch) > s.cfg.ImageBatchSize {
		batch = pending[:s.cfg.ImageBatchSize]
	}
	residual := pending[len(batch):]

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  shopID,
		"job_type": string(enums.JobTypeImage),
		"batch":    len(batch),
		"residual": len(residual),
	})

	batchOK, batchFailed := 0, 0
	for _, raw := range batch {
		if err := s.importImage(ctx, shopID, raw); err != nil {
			record.Failed++
			batchFailed++
			s.logg.Error(logCtx, "image import failed", err)
			continue
		}
		record.Processed++
		batchOK++
	}
	s.metrics.AddItemsProcessed(TaskImageBatch, batchOK)
	s.metrics.AddItemsFailed(TaskImageBatch, batchFailed)

	// residual persists before the record so a crash replays work instead of
	// losing it
	if err := s.progress.SaveQueue(ctx, shopID, enums.JobTypeImage, residual); err != nil {
		return err
	}

	record.Status = enums.JobStatusRunning
	record.Cursor++
	if record.Total > 0 {
		record.Percentage = ((record.Processed + record.Failed) * 100) / record.Total
		if record.Percentage > 100 {
			record.Percentage = 100
		}
	}

	if len(residual) == 0 {
		return s.finishImageChain(ctx, record)
	}
	if err := s.progress.Save(ctx, record); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, TaskImageBatch, map[string]string{argShop: shopID}, s.now().Add(s.cfg.SeedDelay))
}

func (s *Service) finishImageChain(ctx context.Context, record *progress.ImportProgress) error {
	if err := s.progress.DeleteQueue(ctx, record.ShopID, enums.JobTypeImage); err != nil {
		s.logg.Error(ctx, "delete drained image queue failed", err)
	}
	if err := s.finishChain(ctx, record, enums.JobStatusCompleted); err != nil {
		return err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  record.ShopID,
		"job_type": string(enums.JobTypeImage),
	})
	s.logg.Info(logCtx, fmt.Sprintf("image import completed, processed=%d failed=%d", record.Processed, record.Failed))
	return nil
}

// importImage attaches one image unless the product already carries the same
// source URL.
func (s *Service) importImage(ctx context.Context, shopID, raw string) error {
	descriptor, err := decodeDescriptor(raw)
	if err != nil {
		return err
	}
	productID, err := uuid.Parse(descriptor.ProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "image descriptor product id")
	}
	exists, err := s.products.ImageExistsBySourceURL(ctx, productID, descriptor.SourceURL)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.products.AttachImage(ctx, &models.ProductImage{
		ProductID: productID,
		SourceURL: descriptor.SourceURL,
		Position:  descriptor.Position,
	}); err != nil {
		_ = s.syncLog.Record(ctx, synclog.Entry{
			ShopID:     shopID,
			EntityID:   &productID,
			ExternalID: descriptor.SourceURL,
			SyncType:   enums.SyncTypeCreate,
			Status:     enums.SyncStatusFailed,
			Message:    err.Error(),
		})
		return err
	}
	return nil
}
