package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/printloom/printsync-backend/internal/scheduler"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/db/models"
	"github.com/printloom/printsync-backend/pkg/enums"
	pkgerrors "github.com/printloom/printsync-backend/pkg/errors"
	"github.com/printloom/printsync-backend/pkg/printify"
	"github.com/printloom/printsync-backend/pkg/types"
)

// handleOrderPage processes one page of the vendor order listing. Orders that
// already exist locally are skipped, so re-running the chain against an
// imported shop creates nothing new.
func (s *Service) handleOrderPage(ctx context.Context, task scheduler.Task) error {
	shopID := task.Arg(argShop)
	page, err := strconv.Atoi(task.Arg(argPage))
	if err != nil || shopID == "" || page < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order page task requires shop and page args")
	}

	record, err := s.progress.Get(ctx, shopID, enums.JobTypeOrder)
	if err != nil {
		return err
	}
	if record == nil || record.Status.Terminal() {
		s.logg.Warn(s.logg.WithShopID(ctx, shopID), "order page task without active chain, dropping")
		return nil
	}
	if page <= record.Cursor {
		return nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":  shopID,
		"job_type": string(enums.JobTypeOrder),
		"page":     page,
		"catch_up": task.Arg(argCatchUp) != "",
	})

	vendorPage, err := s.vendor.ListOrders(ctx, shopID, page, s.cfg.PageSize)
	if err != nil {
		return s.retryOrFail(ctx, record, task, page, err)
	}

	record.Status = enums.JobStatusRunning
	record.LastPage = vendorPage.LastPage
	record.Total = vendorPage.Total
	record.TotalKnown = true
	record.FetchAttempts = 0

	pageOK, pageFailed := 0, 0
	for _, vendorOrder := range vendorPage.Data {
		exists, err := s.orders.ExistsByPrintifyID(ctx, shopID, vendorOrder.ID)
		if err != nil {
			record.Failed++
			pageFailed++
			s.logg.Error(logCtx, fmt.Sprintf("order %s existence check failed", vendorOrder.ID), err)
			continue
		}
		if exists {
			record.Processed++
			continue
		}
		if err := s.importOrder(ctx, shopID, vendorOrder); err != nil {
			record.Failed++
			pageFailed++
			s.logg.Error(logCtx, fmt.Sprintf("order %s import failed", vendorOrder.ID), err)
			continue
		}
		record.Processed++
		pageOK++
	}
	s.metrics.AddItemsProcessed(TaskOrderPage, pageOK)
	s.metrics.AddItemsFailed(TaskOrderPage, pageFailed)

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
		return s.queue.Enqueue(ctx, TaskOrderPage, args, s.now().Add(s.cfg.InterPageDelay))
	}

	if err := s.finishChain(ctx, record, enums.JobStatusCompleted); err != nil {
		return err
	}
	s.logg.Info(logCtx, fmt.Sprintf("order import completed, processed=%d failed=%d", record.Processed, record.Failed))
	return nil
}

func (s *Service) importOrder(ctx context.Context, shopID string, vendorOrder printify.Order) error {
	local := orderFromVendor(shopID, vendorOrder)
	saved, created, err := s.orders.Upsert(ctx, local)

	entry := synclog.Entry{
		ShopID:     shopID,
		ExternalID: vendorOrder.ID,
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
	return nil
}

func orderFromVendor(shopID string, vendorOrder printify.Order) *models.Order {
	items := make(types.OrderLineItems, 0, len(vendorOrder.LineItems))
	for _, item := range vendorOrder.LineItems {
		items = append(items, types.OrderLineItem{
			ProductExternalID: item.ProductID,
			VariantID:         item.VariantID,
			Quantity:          item.Quantity,
			PriceCents:        item.Price,
			Status:            item.Status,
		})
	}
	local := &models.Order{
		PrintifyID:    vendorOrder.ID,
		ShopID:        shopID,
		Status:        vendorOrder.Status,
		TotalCents:    vendorOrder.TotalPrice,
		ShippingCents: vendorOrder.TotalShipping,
		LineItems:     items,
	}
	if vendorOrder.AddressTo != nil {
		local.AddressTo = &types.Address{
			FirstName: vendorOrder.AddressTo.FirstName,
			LastName:  vendorOrder.AddressTo.LastName,
			Email:     vendorOrder.AddressTo.Email,
			Phone:     vendorOrder.AddressTo.Phone,
			Country:   vendorOrder.AddressTo.Country,
			Region:    vendorOrder.AddressTo.Region,
			City:      vendorOrder.AddressTo.City,
			Address1:  vendorOrder.AddressTo.Address1,
			Address2:  vendorOrder.AddressTo.Address2,
			Zip:       vendorOrder.AddressTo.Zip,
		}
	}
	if len(vendorOrder.Shipments) > 0 {
		shipment := vendorOrder.Shipments[0]
		local.TrackingCarrier = &shipment.Carrier
		local.TrackingNumber = &shipment.Number
	}
	if vendorOrder.CreatedAt != "" {
		if created, err := time.Parse(time.RFC3339, vendorOrder.CreatedAt); err == nil {
			local.VendorCreatedAt = &created
		}
	}
	return local
}
