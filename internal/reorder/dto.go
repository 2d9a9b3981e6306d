package reorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/pagination"
)

// UpdateSettingsInput carries a threshold/automation change for one SKU.
type UpdateSettingsInput struct {
	MinThreshold       int        `json:"min_threshold" validate:"gte=0"`
	OptimalThreshold   int        `json:"optimal_threshold" validate:"gte=0"`
	AutoReorderEnabled bool       `json:"auto_reorder_enabled"`
	PreferredVendorID  *uuid.UUID `json:"preferred_vendor_id"`
	WarehouseScope     []string   `json:"warehouse_scope"`
}

// ManualReorderInput requests an immediate, audited reorder of one SKU.
type ManualReorderInput struct {
	SKUID       uuid.UUID  `json:"sku_id" validate:"required"`
	VendorID    *uuid.UUID `json:"vendor_id"`
	WarehouseID *string    `json:"warehouse_id"`
	Notes       *string    `json:"notes"`
}

// ItemOutcome reports what happened to one trigger during a batch run.
type ItemOutcome struct {
	TriggerID       uuid.UUID           `json:"trigger_id"`
	SKUID           uuid.UUID           `json:"sku_id"`
	Status          enums.TriggerStatus `json:"status"`
	PurchaseOrderID *string             `json:"purchase_order_id,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// BatchResult aggregates a processing sweep. One bad record never aborts the
// batch; its failure lands in Items and the counters.
type BatchResult struct {
	Processed        int           `json:"processed"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	Skipped          int           `json:"skipped"`
	PurchaseOrderIDs []string      `json:"purchase_order_ids"`
	Items            []ItemOutcome `json:"items"`
}

// ChangeEvent is one inventory movement from the change feed. Quantities are
// available units (total minus reserved) for the affected warehouse.
type ChangeEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	SKUID       uuid.UUID `json:"sku_id"`
	WarehouseID string    `json:"warehouse_id"`
	PreviousQty int       `json:"previous_qty"`
	NewQty      int       `json:"new_qty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// IsDecrease reports whether the event reduced availability.
func (e ChangeEvent) IsDecrease() bool {
	return e.NewQty < e.PreviousQty
}

// Statistics is the stock-position projection for dashboard tiles.
type Statistics struct {
	CriticalCount     int       `json:"critical_count"`
	LowCount          int       `json:"low_count"`
	HealthyCount      int       `json:"healthy_count"`
	OverstockedCount  int       `json:"overstocked_count"`
	TotalSKUs         int       `json:"total_skus"`
	AutoReorderActive int       `json:"auto_reorder_active"`
	CoveragePct       string    `json:"coverage_pct"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// HistoryQuery selects a page of trigger history for one SKU.
type HistoryQuery struct {
	SKUID  uuid.UUID
	Status *enums.TriggerStatus
	Page   pagination.Params
}
