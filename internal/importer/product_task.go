package importer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/printloom/printsync-backend/internal/scheduler"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/printify"
	"github.com/printloom/printsync-backend/pkg/types"
)

// handleProductPage processes exactly one page of the vendor catalog:
// fetch page N, upsert its products in chunks, record per-item outcomes,
// persist progress, then enqueue page N+1 (or finish the chain).
func (s *Service) handleProductPage(ctx context.Context, task scheduler.Task) error {
	shopID := task.Arg(argShop)
	page, err := strconv.Atoi(task.Arg(argPage))
	if err != nil || shopID == "" || page < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product page task requires shop and page args")
	}

	record, err := s.progress.Get(ctx, shopID, enums.JobTypeProduct)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		s.logg.Warn(s.logg.WithShopID(ctx, shopID), "product page task without active chain, dropping")
		return nil
	}
	if page <= record.Cursor {
		// duplicate delivery of an already processed page
		return nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  shopID,
		"job_type": string(enums.JobTypeProduct),
		"page":     page,
		"catch_up": task.Arg(argCatchUp) != "",
	})

	vendorPage, err := s.vendor.ListProducts(ctx, shopID, page, s.cfg.PageSize)
	if err != nil {
		return s.retryOrFail(ctx, record, task, page, err)
	}

	record.Status = enums.JobStatusRunning
	record.LastPage = vendorPage.LastPage
	record.Total = vendorPage.Total
	record.TotalKnown = true
	record.FetchAttempts = 0

	pageOK, pageFailed := 0, 0
	for _, chunk := range chunkProducts(vendorPage.Data, s.cfg.UpsertBatchSize) {
		for _, vendorProduct := range chunk {
			if err := s.importProduct(ctx, shopID, vendorProduct); err != nil {
				record.Failed++
				pageFailed++
				s.logg.Error(logCtx, fmt.Sprintf("product %s import failed", vendorProduct.ID), err)
				continue
			}
			record.Processed++
			pageOK++
		}
	}
	s.metrics.AddItemsProcessed(TaskProductPage, pageOK)
	s.metrics.AddItemsFailed(TaskProductPage, pageFailed)

	record.Cursor = page
	record.Percentage = percentage(page, vendorPage.LastPage)

	if page < vendorPage.LastPage {
		if err := s.progress.Save(ctx, record); err != nil {
			return err
		}
		args := map[string]string{argShop: shopID, argPage: strconv.Itoa(page + 1)}
		if task.Arg(argCatchUp) != "" {
			args[argCatchUp] = task.Arg(argCatchUp)
		}
		return s.queue.Enqueue(ctx, TaskProductPage, args, s.now().Add(s.cfg.InterPageDelay))
	}

	if err := s.finishChain(ctx, record, enums.JobStatusCompleted); err != nil {
		return err
	}
	if err := s.progress.MarkBaselineImported(ctx, shopID); err != nil {
		s.logg.Error(logCtx, "mark baseline imported failed", err)
	}
	s.logg.Info(logCtx, fmt.Sprintf("product import completed, processed=%d failed=%d", record.Processed, record.Failed))
	return nil
}

// importProduct upserts one vendor product and appends its image work. The
// vendor ID is preserved in the sync log on failure so a later retry can be
// correlated.
func (s *Service) importProduct(ctx context.Context, shopID string, vendorProduct printify.Product) error {
	local := productFromVendor(shopID, vendorProduct)
	saved, created, err := s.products.Upsert(ctx, local)

	entry := synclog.Entry{
		ShopID:     shopID,
		ExternalID: vendorProduct.ID,
		SyncType:   enums.SyncTypeUpdate,
		Status:     enums.SyncStatusSuccess,
	}
	if created {
		entry.SyncType = enums.SyncTypeCreate
	}
	if err != nil {
		entry.Status = enums.SyncStatusFailed
		entry.Message = err.Error()
		_ = s.syncLog.Record(ctx, entry)
		return err
	}
	entry.EntityID = &saved.ID
	_ = s.syncLog.Record(ctx, entry)

	if len(vendorProduct.Images) > 0 {
		if err := s.appendImageWork(ctx, shopID, saved.ID.String(), vendorProduct.Images); err != nil {
			s.logg.Warn(s.logg.WithShopID(ctx, shopID),
				fmt.Sprintf("queue image work for product %s: %v", vendorProduct.ID, err))
		}
	}
	return nil
}

func productFromVendor(shopID string, vendorProduct printify.Product) *models.Product {
	variants := make(types.ProductVariants, 0, len(vendorProduct.Variants))
	for _, v := range vendorProduct.Variants {
		variants = append(variants, types.ProductVariant{
			VariantID:  v.ID,
			SKU:        v.SKU,
			Title:      v.Title,
			PriceCents: v.Price,
			Enabled:    v.Enabled,
			InStock:    v.InStock,
		})
	}
	return &models.Product{
		PrintifyID:  vendorProduct.ID,
		ShopID:      shopID,
		Title:       vendorProduct.Title,
		Description: vendorProduct.Description,
		Tags:        pq.StringArray(vendorProduct.Tags),
		Variants:    variants,
		Visible:     vendorProduct.Visible,
	}
}

func chunkProducts(items []printify.Product, size int) [][]printify.Product {
	if size <= 0 {
		return [][]printify.Product{items}
	}
	var chunks [][]printify.Product
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
