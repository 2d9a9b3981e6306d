package reorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/metrics"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/outbox/payloads"
	"github.com/stocklinehq/stockline-backend/pkg/pagination"
	"github.com/stocklinehq/stockline-backend/pkg/procurement"
)

const noVendorNotes = "no vendor configured"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type purchaseOrderCreator interface {
	CreatePurchaseOrder(ctx context.Context, params procurement.CreatePurchaseOrderParams) (*procurement.PurchaseOrder, error)
}

type domainEventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the reorder service.
type ServiceParams struct {
	Repo        Repository
	DB          txRunner
	Procurement purchaseOrderCreator
	Outbox      domainEventEmitter
	Logger      *logger.Logger
	Metrics     *metrics.ReorderMetrics
	Planning    config.PlanningConfig
}

// Service orchestrates trigger creation and processing. Trigger rows move
// pending -> po_created | failed exactly once; everything else is bookkeeping
// around that transition.
type Service struct {
	repo     Repository
	db       txRunner
	procure  purchaseOrderCreator
	outbox   domainEventEmitter
	logg     *logger.Logger
	metrics  *metrics.ReorderMetrics
	planning config.PlanningConfig
}

// NewService builds a reorder service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Procurement == nil {
		return nil, errors.New("procurement client is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:     params.Repo,
		db:       params.DB,
		procure:  params.Procurement,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		planning: params.Planning,
	}, nil
}

// EnqueueTrigger inserts a pending trigger and emits the matching event in
// one transaction. A CONFLICT means the SKU already has a live trigger; the
// caller decides whether that is an error or a no-op.
func (s *Service) EnqueueTrigger(ctx context.Context, trigger *models.ReorderTrigger) error {
	if trigger.TriggeredAt.IsZero() {
		trigger.TriggeredAt = time.Now().UTC()
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).InsertPending(ctx, trigger); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReorderTriggered,
			AggregateType: enums.AggregateReorderTrigger,
			AggregateID:   trigger.ID,
			Actor:         &outbox.ActorRef{Source: string(trigger.TriggerType)},
			Data: payloads.ReorderTriggeredEvent{
				TriggerID:        trigger.ID,
				SKUID:            trigger.SKUID,
				TriggerType:      trigger.TriggerType,
				InventoryLevel:   trigger.InventoryLevel,
				MinThreshold:     trigger.MinThreshold,
				OptimalThreshold: trigger.OptimalThreshold,
				ReorderQuantity:  trigger.ReorderQuantity,
				WarehouseID:      trigger.WarehouseID,
				TriggeredAt:      trigger.TriggeredAt,
			},
		})
	})
	if err != nil {
		return err
	}

	s.metrics.IncTriggerCreated(string(trigger.TriggerType))
	logCtx := s.logg.WithTriggerID(s.logg.WithSKUID(ctx, trigger.SKUID.String()), trigger.ID.String())
	s.logg.Info(logCtx, "reorder trigger enqueued")
	return nil
}

// ProcessPending drains the queue oldest-first. Each record is isolated: a
// failure resolves that trigger as failed and the batch moves on.
func (s *Service) ProcessPending(ctx context.Context) (BatchResult, error) {
	result := BatchResult{}

	pending, err := s.repo.ListPending(ctx, 0)
	if err != nil {
		return result, err
	}

	for i := range pending {
		outcome := s.processOne(ctx, &pending[i])
		s.collect(&result, outcome)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}), "pending reorder batch complete")
	return result, nil
}

// ManualReorder records an audited manual trigger and processes it
// immediately. The enabled flag does not gate manual requests.
func (s *Service) ManualReorder(ctx context.Context, input ManualReorderInput) (*ItemOutcome, error) {
	sku, err := s.repo.FindSKU(ctx, input.SKUID)
	if err != nil {
		return nil, err
	}
	if sku == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
	}

	cfg, err := s.repo.FindConfig(ctx, input.SKUID)
	if err != nil {
		return nil, err
	}

	var scope []string
	minThreshold, optimalThreshold := 0, 0
	if cfg != nil {
		scope = cfg.WarehouseScope
		minThreshold = cfg.MinThreshold
		optimalThreshold = cfg.OptimalThreshold
	}
	if input.WarehouseID != nil {
		scope = []string{*input.WarehouseID}
	}

	available, err := s.repo.AvailableQty(ctx, input.SKUID, scope)
	if err != nil {
		return nil, err
	}

	qty := optimalThreshold - available
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock is at or above the optimal threshold, nothing to reorder")
	}

	trigger := models.ReorderTrigger{
		SKUID:            input.SKUID,
		TriggerType:      enums.TriggerTypeManual,
		InventoryLevel:   available,
		MinThreshold:     minThreshold,
		OptimalThreshold: optimalThreshold,
		ReorderQuantity:  qty,
		WarehouseID:      input.WarehouseID,
		VendorID:         input.VendorID,
		Notes:            input.Notes,
	}
	if err := s.EnqueueTrigger(ctx, &trigger); err != nil {
		return nil, err
	}

	outcome := s.processOne(ctx, &trigger)
	return &outcome, nil
}

// ProcessAutoReorder sweeps every automation-enabled config, enqueues triggers
// where thresholds warrant one, and then drains the queue.
func (s *Service) ProcessAutoReorder(ctx context.Context) (BatchResult, error) {
	configs, err := s.repo.ListEnabledConfigs(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	for _, cfg := range configs {
		if err := s.evaluateAndEnqueue(ctx, cfg, enums.TriggerTypeAutoSchedule, nil); err != nil {
			logCtx := s.logg.WithSKUID(ctx, cfg.SKUID.String())
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "auto reorder evaluation failed")
		}
	}

	return s.ProcessPending(ctx)
}

// UpdateSettings validates and persists the SKU's reorder policy. It never
// touches existing triggers; their snapshots are the audit trail.
func (s *Service) UpdateSettings(ctx context.Context, skuID uuid.UUID, input UpdateSettingsInput) (*models.SKUReorderConfig, error) {
	if input.MinThreshold < 0 || input.OptimalThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thresholds cannot be negative")
	}
	if input.MinThreshold > input.OptimalThreshold {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_threshold cannot exceed optimal_threshold")
	}

	sku, err := s.repo.FindSKU(ctx, skuID)
	if err != nil {
		return nil, err
	}
	if sku == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found")
	}

	cfg := models.SKUReorderConfig{
		SKUID:              skuID,
		MinThreshold:       input.MinThreshold,
		OptimalThreshold:   input.OptimalThreshold,
		AutoReorderEnabled: input.AutoReorderEnabled,
		PreferredVendorID:  input.PreferredVendorID,
		WarehouseScope:     input.WarehouseScope,
		UpdatedAt:          time.Now().UTC(),
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpsertConfig(ctx, &cfg); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReorderSettingsUpdated,
			AggregateType: enums.AggregateSKU,
			AggregateID:   skuID,
			Data: payloads.ReorderSettingsUpdatedEvent{
				SKUID:              skuID,
				MinThreshold:       cfg.MinThreshold,
				OptimalThreshold:   cfg.OptimalThreshold,
				AutoReorderEnabled: cfg.AutoReorderEnabled,
				PreferredVendorID:  cfg.PreferredVendorID,
				WarehouseScope:     cfg.WarehouseScope,
				UpdatedAt:          cfg.UpdatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// History returns a page of the SKU's trigger audit trail, newest first.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]models.ReorderTrigger, *pagination.Cursor, error) {
	return s.repo.ListHistory(ctx, q)
}

// PendingTriggers returns the live queue oldest-first.
func (s *Service) PendingTriggers(ctx context.Context) ([]models.ReorderTrigger, error) {
	return s.repo.ListPending(ctx, 0)
}

// HasPending reports whether the SKU has a live trigger.
func (s *Service) HasPending(ctx context.Context, skuID uuid.UUID) (bool, error) {
	return s.repo.HasPending(ctx, skuID)
}

func (s *Service) evaluateAndEnqueue(ctx context.Context, cfg models.SKUReorderConfig, triggerType enums.TriggerType, warehouseID *string) error {
	pending, err := s.repo.HasPending(ctx, cfg.SKUID)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	available, err := s.repo.AvailableQty(ctx, cfg.SKUID, cfg.WarehouseScope)
	if err != nil {
		return err
	}

	decision, err := Evaluate(cfg, available)
	if err != nil {
		return err
	}
	if !decision.Actionable() {
		return nil
	}

	trigger := models.ReorderTrigger{
		SKUID:            cfg.SKUID,
		TriggerType:      triggerType,
		InventoryLevel:   decision.InventoryLevel,
		MinThreshold:     decision.MinThreshold,
		OptimalThreshold: decision.OptimalThreshold,
		ReorderQuantity:  decision.ReorderQty,
		WarehouseID:      warehouseID,
	}
	err = s.EnqueueTrigger(ctx, &trigger)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
			// raced with another producer; their pending trigger covers us
			return nil
		}
		return err
	}
	return nil
}

// processOne moves a single pending trigger to its terminal status. All
// failure modes resolve the row as failed with the reason in notes.
func (s *Service) processOne(ctx context.Context, trigger *models.ReorderTrigger) ItemOutcome {
	logCtx := s.logg.WithTriggerID(s.logg.WithSKUID(ctx, trigger.SKUID.String()), trigger.ID.String())

	vendorID, err := s.resolveVendor(ctx, trigger)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNoVendor {
			return s.resolveFailed(logCtx, trigger, noVendorNotes)
		}
		// infrastructure error, not vendor absence: leave the row pending so
		// a later run retries it
		s.logg.Error(logCtx, "vendor resolution failed", err)
		return ItemOutcome{
			TriggerID: trigger.ID,
			SKUID:     trigger.SKUID,
			Status:    enums.TriggerStatusPending,
			Error:     err.Error(),
		}
	}

	if trigger.ReorderQuantity <= 0 {
		return s.resolveFailed(logCtx, trigger, "reorder quantity is zero")
	}

	po, err := s.procure.CreatePurchaseOrder(ctx, procurement.CreatePurchaseOrderParams{
		SKUID:          trigger.SKUID,
		VendorID:       vendorID,
		Quantity:       trigger.ReorderQuantity,
		IdempotencyKey: fmt.Sprintf("reorder-%s", trigger.ID),
		Reference:      trigger.ID.String(),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "purchase order creation failed")
		return s.resolveFailed(logCtx, trigger, err.Error())
	}

	resolvedAt := time.Now().UTC()
	claimed := false
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, claimErr := s.repo.ClaimTx(tx, trigger.ID, enums.TriggerStatusPOCreated, map[string]any{
			"vendor_id":         vendorID,
			"purchase_order_id": po.ID,
		})
		if claimErr != nil {
			return claimErr
		}
		claimed = ok
		if !ok {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReorderPOCreated,
			AggregateType: enums.AggregateReorderTrigger,
			AggregateID:   trigger.ID,
			Data: payloads.ReorderPOCreatedEvent{
				TriggerID:       trigger.ID,
				SKUID:           trigger.SKUID,
				VendorID:        vendorID,
				PurchaseOrderID: po.ID,
				ReorderQuantity: trigger.ReorderQuantity,
				ResolvedAt:      resolvedAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(logCtx, "failed to resolve trigger after po creation", err)
		return ItemOutcome{
			TriggerID: trigger.ID,
			SKUID:     trigger.SKUID,
			Status:    enums.TriggerStatusPending,
			Error:     err.Error(),
		}
	}
	if !claimed {
		s.logg.Warn(logCtx, "trigger already resolved, skipping")
		return ItemOutcome{
			TriggerID: trigger.ID,
			SKUID:     trigger.SKUID,
			Status:    enums.TriggerStatusPending,
			Error:     "trigger no longer pending",
		}
	}

	s.metrics.IncTriggerResolved(string(enums.TriggerStatusPOCreated))
	s.logg.Info(s.logg.WithField(logCtx, "po_id", po.ID), "reorder trigger resolved")
	poID := po.ID
	return ItemOutcome{
		TriggerID:       trigger.ID,
		SKUID:           trigger.SKUID,
		Status:          enums.TriggerStatusPOCreated,
		PurchaseOrderID: &poID,
	}
}

func (s *Service) resolveVendor(ctx context.Context, trigger *models.ReorderTrigger) (uuid.UUID, error) {
	if trigger.VendorID != nil && *trigger.VendorID != uuid.Nil {
		return *trigger.VendorID, nil
	}
	cfg, err := s.repo.FindConfig(ctx, trigger.SKUID)
	if err != nil {
		return uuid.Nil, err
	}
	if cfg != nil && cfg.PreferredVendorID != nil && *cfg.PreferredVendorID != uuid.Nil {
		return *cfg.PreferredVendorID, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeNoVendor, noVendorNotes)
}

func (s *Service) resolveFailed(ctx context.Context, trigger *models.ReorderTrigger, reason string) ItemOutcome {
	resolvedAt := time.Now().UTC()
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, claimErr := s.repo.ClaimTx(tx, trigger.ID, enums.TriggerStatusFailed, map[string]any{
			"notes": reason,
		})
		if claimErr != nil {
			return claimErr
		}
		claimed = ok
		if !ok {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReorderFailed,
			AggregateType: enums.AggregateReorderTrigger,
			AggregateID:   trigger.ID,
			Data: payloads.ReorderFailedEvent{
				TriggerID:  trigger.ID,
				SKUID:      trigger.SKUID,
				Reason:     reason,
				ResolvedAt: resolvedAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to mark trigger failed", err)
		return ItemOutcome{
			TriggerID: trigger.ID,
			SKUID:     trigger.SKUID,
			Status:    enums.TriggerStatusPending,
			Error:     err.Error(),
		}
	}
	if !claimed {
		return ItemOutcome{
			TriggerID: trigger.ID,
			SKUID:     trigger.SKUID,
			Status:    enums.TriggerStatusPending,
			Error:     "trigger no longer pending",
		}
	}

	s.metrics.IncTriggerResolved(string(enums.TriggerStatusFailed))
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "reorder trigger failed")
	return ItemOutcome{
		TriggerID: trigger.ID,
		SKUID:     trigger.SKUID,
		Status:    enums.TriggerStatusFailed,
		Error:     reason,
	}
}

func (s *Service) collect(result *BatchResult, outcome ItemOutcome) {
	result.Processed++
	result.Items = append(result.Items, outcome)
	switch outcome.Status {
	case enums.TriggerStatusPOCreated:
		result.Succeeded++
		if outcome.PurchaseOrderID != nil {
			result.PurchaseOrderIDs = append(result.PurchaseOrderIDs, *outcome.PurchaseOrderID)
		}
	case enums.TriggerStatusFailed:
		result.Failed++
	default:
		result.Skipped++
	}
}
