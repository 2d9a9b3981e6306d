package reorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/pagination"
	"github.com/stocklinehq/stockline-backend/pkg/procurement"
)

func paginationParams(limit int) pagination.Params {
	return pagination.Params{Limit: limit}
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakePOCreator struct {
	calls  []procurement.CreatePurchaseOrderParams
	err    error
	nextID int
}

func (f *fakePOCreator) CreatePurchaseOrder(_ context.Context, params procurement.CreatePurchaseOrderParams) (*procurement.PurchaseOrder, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	return &procurement.PurchaseOrder{
		ID:       fmt.Sprintf("po_%03d", f.nextID),
		VendorID: params.VendorID.String(),
		Status:   "open",
	}, nil
}

type serviceFixture struct {
	svc     *Service
	repo    Repository
	db      *gorm.DB
	emitter *fakeEmitter
	po      *fakePOCreator
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := setupReorderTestDB(t)
	repo := NewRepository(db)
	emitter := &fakeEmitter{}
	po := &fakePOCreator{}

	svc, err := NewService(ServiceParams{
		Repo:        repo,
		DB:          testTxRunner{db: db},
		Procurement: po,
		Outbox:      emitter,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Planning:    config.PlanningConfig{LowBandUnits: 10, OverstockMarginPct: 25},
	})
	require.NoError(t, err)

	return &serviceFixture{svc: svc, repo: repo, db: db, emitter: emitter, po: po}
}

func (f *serviceFixture) seedConfiguredSKU(t *testing.T, code string, minT, optimalT, available int, vendorID *uuid.UUID, enabled bool) models.SKU {
	t.Helper()
	sku := seedSKU(t, f.db, code)
	cfg := models.SKUReorderConfig{
		SKUID:              sku.ID,
		MinThreshold:       minT,
		OptimalThreshold:   optimalT,
		AutoReorderEnabled: enabled,
		PreferredVendorID:  vendorID,
	}
	require.NoError(t, f.db.Create(&cfg).Error)
	level := models.InventoryLevel{
		WarehouseID: "wh-main",
		SKUID:       sku.ID,
		TotalQty:    available,
		ReservedQty: 0,
	}
	require.NoError(t, f.db.Create(&level).Error)
	return sku
}

func TestProcessPendingCreatesPurchaseOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-P-001", 10, 50, 4, &vendorID, true)

	trigger := models.ReorderTrigger{
		SKUID:            sku.ID,
		TriggerType:      enums.TriggerTypeAutoSchedule,
		InventoryLevel:   4,
		MinThreshold:     10,
		OptimalThreshold: 50,
		ReorderQuantity:  46,
	}
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &trigger))

	result, err := f.svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	require.Len(t, result.PurchaseOrderIDs, 1)

	require.Len(t, f.po.calls, 1)
	require.Equal(t, vendorID, f.po.calls[0].VendorID)
	require.Equal(t, 46, f.po.calls[0].Quantity)

	stored, err := f.repo.FindTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TriggerStatusPOCreated, stored.Status)
	require.NotNil(t, stored.VendorID)
	require.Equal(t, vendorID, *stored.VendorID)

	require.Equal(t, []enums.OutboxEventType{
		enums.EventReorderTriggered,
		enums.EventReorderPOCreated,
	}, f.emitter.eventTypes())
}

func TestProcessPendingFailsWithoutVendor(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sku := f.seedConfiguredSKU(t, "SL-P-002", 10, 50, 4, nil, true)

	trigger := models.ReorderTrigger{
		SKUID:            sku.ID,
		TriggerType:      enums.TriggerTypeAutoSchedule,
		InventoryLevel:   4,
		MinThreshold:     10,
		OptimalThreshold: 50,
		ReorderQuantity:  46,
	}
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &trigger))

	result, err := f.svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Failed)
	require.Empty(t, f.po.calls)

	stored, err := f.repo.FindTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TriggerStatusFailed, stored.Status)
	require.NotNil(t, stored.Notes)
	require.Equal(t, noVendorNotes, *stored.Notes)
	require.NotNil(t, stored.ResolvedAt)
}

func TestProcessPendingTriggerVendorWinsOverPreferred(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	preferred := uuid.New()
	override := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-P-003", 10, 50, 4, &preferred, true)

	trigger := models.ReorderTrigger{
		SKUID:            sku.ID,
		TriggerType:      enums.TriggerTypeManual,
		InventoryLevel:   4,
		MinThreshold:     10,
		OptimalThreshold: 50,
		ReorderQuantity:  46,
		VendorID:         &override,
	}
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &trigger))

	result, err := f.svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Len(t, f.po.calls, 1)
	require.Equal(t, override, f.po.calls[0].VendorID)
}

func TestProcessPendingIsolatesFailures(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()

	noVendorSKU := f.seedConfiguredSKU(t, "SL-P-004", 10, 50, 4, nil, true)
	okSKU := f.seedConfiguredSKU(t, "SL-P-005", 10, 50, 4, &vendorID, true)

	early := models.ReorderTrigger{
		SKUID: noVendorSKU.ID, TriggerType: enums.TriggerTypeAutoSchedule,
		InventoryLevel: 4, MinThreshold: 10, OptimalThreshold: 50, ReorderQuantity: 46,
		TriggeredAt: time.Now().UTC().Add(-time.Minute),
	}
	late := models.ReorderTrigger{
		SKUID: okSKU.ID, TriggerType: enums.TriggerTypeAutoSchedule,
		InventoryLevel: 4, MinThreshold: 10, OptimalThreshold: 50, ReorderQuantity: 46,
	}
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &early))
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &late))

	result, err := f.svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)

	// FIFO: the older record is processed (and fails) first
	require.Equal(t, early.ID, result.Items[0].TriggerID)
	require.Equal(t, enums.TriggerStatusFailed, result.Items[0].Status)
	require.Equal(t, late.ID, result.Items[1].TriggerID)
	require.Equal(t, enums.TriggerStatusPOCreated, result.Items[1].Status)
}

type flakyConfigRepo struct {
	Repository
	failures int
}

func (r *flakyConfigRepo) FindConfig(ctx context.Context, skuID uuid.UUID) (*models.SKUReorderConfig, error) {
	if r.failures > 0 {
		r.failures--
		return nil, fmt.Errorf("driver: bad connection")
	}
	return r.Repository.FindConfig(ctx, skuID)
}

func TestProcessPendingKeepsTriggerOnConfigLookupFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-P-006", 10, 50, 4, &vendorID, true)

	flaky := &flakyConfigRepo{Repository: f.repo, failures: 1}
	svc, err := NewService(ServiceParams{
		Repo:        flaky,
		DB:          testTxRunner{db: f.db},
		Procurement: f.po,
		Outbox:      f.emitter,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Planning:    config.PlanningConfig{LowBandUnits: 10, OverstockMarginPct: 25},
	})
	require.NoError(t, err)

	trigger := models.ReorderTrigger{
		SKUID:            sku.ID,
		TriggerType:      enums.TriggerTypeAutoSchedule,
		InventoryLevel:   4,
		MinThreshold:     10,
		OptimalThreshold: 50,
		ReorderQuantity:  46,
	}
	require.NoError(t, svc.EnqueueTrigger(ctx, &trigger))

	// the lookup error is transient, so the trigger stays pending
	result, err := svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 0, result.Failed)
	require.Equal(t, 1, result.Skipped)
	require.Empty(t, f.po.calls)

	stored, err := f.repo.FindTrigger(ctx, trigger.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TriggerStatusPending, stored.Status)
	require.Nil(t, stored.Notes)

	// next sweep picks it up with the preferred vendor
	result, err = svc.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Len(t, f.po.calls, 1)
	require.Equal(t, vendorID, f.po.calls[0].VendorID)
}

func TestManualReorderCreatesAuditedTrigger(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-M-001", 10, 50, 30, &vendorID, false)

	outcome, err := f.svc.ManualReorder(ctx, ManualReorderInput{SKUID: sku.ID})
	require.NoError(t, err)
	require.Equal(t, enums.TriggerStatusPOCreated, outcome.Status)
	require.NotNil(t, outcome.PurchaseOrderID)

	// manual path tops up to optimal even though stock sits above min
	require.Len(t, f.po.calls, 1)
	require.Equal(t, 20, f.po.calls[0].Quantity)

	stored, err := f.repo.FindTrigger(ctx, outcome.TriggerID)
	require.NoError(t, err)
	require.Equal(t, enums.TriggerTypeManual, stored.TriggerType)
}

func TestManualReorderUnknownSKU(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ManualReorder(context.Background(), ManualReorderInput{SKUID: uuid.New()})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestManualReorderRejectsWhenNothingToReorder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-M-002", 10, 50, 80, &vendorID, true)

	_, err := f.svc.ManualReorder(ctx, ManualReorderInput{SKUID: sku.ID})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	// rejected before enqueue: no audit row, no procurement call
	history, _, err := f.repo.ListHistory(ctx, HistoryQuery{SKUID: sku.ID, Page: paginationParams(10)})
	require.NoError(t, err)
	require.Empty(t, history)
	require.Empty(t, f.po.calls)
}

func TestProcessAutoReorderSweep(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()

	low := f.seedConfiguredSKU(t, "SL-A-001", 10, 50, 4, &vendorID, true)
	f.seedConfiguredSKU(t, "SL-A-002", 10, 50, 30, &vendorID, true)
	f.seedConfiguredSKU(t, "SL-A-003", 10, 50, 2, &vendorID, false)

	result, err := f.svc.ProcessAutoReorder(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Succeeded)

	has, err := f.repo.HasPending(ctx, low.ID)
	require.NoError(t, err)
	require.False(t, has)

	history, _, err := f.repo.ListHistory(ctx, HistoryQuery{SKUID: low.ID, Page: paginationParams(10)})
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, enums.TriggerTypeAutoSchedule, history[0].TriggerType)
}

func TestProcessAutoReorderSkipsExistingPending(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	vendorID := uuid.New()
	sku := f.seedConfiguredSKU(t, "SL-A-004", 10, 50, 4, &vendorID, true)

	existing := models.ReorderTrigger{
		SKUID: sku.ID, TriggerType: enums.TriggerTypeInventoryChange,
		InventoryLevel: 4, MinThreshold: 10, OptimalThreshold: 50, ReorderQuantity: 46,
	}
	require.NoError(t, f.svc.EnqueueTrigger(ctx, &existing))

	result, err := f.svc.ProcessAutoReorder(ctx)
	require.NoError(t, err)
	// only the pre-existing trigger flows through; no duplicate was enqueued
	require.Equal(t, 1, result.Processed)

	history, _, err := f.repo.ListHistory(ctx, HistoryQuery{SKUID: sku.ID, Page: paginationParams(10)})
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestUpdateSettingsValidatesThresholdOrder(t *testing.T) {
	f := newServiceFixture(t)
	sku := seedSKU(t, f.db, "SL-U-001")

	_, err := f.svc.UpdateSettings(context.Background(), sku.ID, UpdateSettingsInput{
		MinThreshold:     50,
		OptimalThreshold: 10,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdateSettingsPersistsAndEmits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	sku := seedSKU(t, f.db, "SL-U-002")
	vendorID := uuid.New()

	cfg, err := f.svc.UpdateSettings(ctx, sku.ID, UpdateSettingsInput{
		MinThreshold:       5,
		OptimalThreshold:   25,
		AutoReorderEnabled: true,
		PreferredVendorID:  &vendorID,
	})
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MinThreshold)

	stored, err := f.repo.FindConfig(ctx, sku.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, stored.AutoReorderEnabled)

	require.Contains(t, f.emitter.eventTypes(), enums.EventReorderSettingsUpdated)
}

func TestUpdateSettingsUnknownSKU(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.UpdateSettings(context.Background(), uuid.New(), UpdateSettingsInput{
		MinThreshold:     1,
		OptimalThreshold: 5,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
