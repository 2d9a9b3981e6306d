package reorder

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

const reactorConsumerName = "inventory-reactor"

type triggerEnqueuer interface {
	EnqueueTrigger(ctx context.Context, trigger *models.ReorderTrigger) error
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ReactorParams groups dependencies for the inventory change reactor.
type ReactorParams struct {
	Repo        Repository
	Enqueuer    triggerEnqueuer
	Idempotency processedGuard
	Logger      *logger.Logger
}

// Reactor listens to the inventory change feed and enqueues triggers when a
// decrease drops a SKU to or below its minimum. It only ever adds to the
// queue; the processor owns every status transition.
type Reactor struct {
	repo        Repository
	enqueuer    triggerEnqueuer
	idempotency processedGuard
	logg        *logger.Logger
}

// NewReactor builds the change feed reactor.
func NewReactor(params ReactorParams) (*Reactor, error) {
	if params.Repo == nil {
		return nil, errNilRepo
	}
	if params.Enqueuer == nil {
		return nil, errors.New("enqueuer is required")
	}
	if params.Idempotency == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if params.Logger == nil {
		return nil, errNilLogger
	}
	return &Reactor{
		repo:        params.Repo,
		enqueuer:    params.Enqueuer,
		idempotency: params.Idempotency,
		logg:        params.Logger,
	}, nil
}

// HandleChange reacts to one movement event. A nil return means the event is
// fully handled (including every deliberate no-op); an error asks the worker
// loop to nack for redelivery.
func (r *Reactor) HandleChange(ctx context.Context, event ChangeEvent) error {
	logCtx := r.logg.WithSKUID(ctx, event.SKUID.String())
	logCtx = r.logg.WithWarehouseID(logCtx, event.WarehouseID)

	if !event.IsDecrease() {
		return nil
	}

	if event.EventID != uuid.Nil {
		already, err := r.idempotency.CheckAndMarkProcessed(ctx, reactorConsumerName, event.EventID)
		if err != nil {
			return err
		}
		if already {
			r.logg.Info(logCtx, "inventory change already processed")
			return nil
		}
	}

	cfg, err := r.repo.FindConfig(ctx, event.SKUID)
	if err != nil {
		return r.unmark(ctx, event, err)
	}
	if cfg == nil || !cfg.AutoReorderEnabled {
		return nil
	}
	if !cfg.WatchesWarehouse(event.WarehouseID) {
		return nil
	}

	pending, err := r.repo.HasPending(ctx, event.SKUID)
	if err != nil {
		return r.unmark(ctx, event, err)
	}
	if pending {
		return nil
	}

	// the event's quantity is per-warehouse; the decision runs against the
	// authoritative sum over the config's scope
	available, err := r.repo.AvailableQty(ctx, event.SKUID, cfg.WarehouseScope)
	if err != nil {
		return r.unmark(ctx, event, err)
	}

	decision, err := Evaluate(*cfg, available)
	if err != nil {
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "inventory change evaluation rejected")
		return nil
	}
	if !decision.Actionable() {
		return nil
	}

	warehouseID := event.WarehouseID
	trigger := models.ReorderTrigger{
		SKUID:            event.SKUID,
		TriggerType:      enums.TriggerTypeInventoryChange,
		InventoryLevel:   decision.InventoryLevel,
		MinThreshold:     decision.MinThreshold,
		OptimalThreshold: decision.OptimalThreshold,
		ReorderQuantity:  decision.ReorderQty,
		WarehouseID:      &warehouseID,
	}
	if err := r.enqueuer.EnqueueTrigger(ctx, &trigger); err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
			return nil
		}
		return r.unmark(ctx, event, err)
	}

	r.logg.Info(r.logg.WithTriggerID(logCtx, trigger.ID.String()), "inventory change enqueued reorder trigger")
	return nil
}

// unmark releases the idempotency mark so a redelivery is not skipped as
// already processed, then hands the error back for the worker to nack.
func (r *Reactor) unmark(ctx context.Context, event ChangeEvent, err error) error {
	if event.EventID != uuid.Nil {
		_ = r.idempotency.Delete(ctx, reactorConsumerName, event.EventID)
	}
	return err
}
