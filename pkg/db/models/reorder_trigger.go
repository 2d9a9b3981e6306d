package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/enums"
)

// ReorderTrigger is one reorder decision episode. Threshold values are
// snapshotted at trigger time so the audit trail survives later config edits.
// Rows are append-only: the processor flips status exactly once and nothing
// is ever deleted.
type ReorderTrigger struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKUID            uuid.UUID           `gorm:"column:sku_id;type:uuid;not null;index"`
	TriggerType      enums.TriggerType   `gorm:"column:trigger_type;type:trigger_type_enum;not null"`
	Status           enums.TriggerStatus `gorm:"column:status;type:trigger_status_enum;not null;default:'pending'"`
	InventoryLevel   int                 `gorm:"column:inventory_level;not null"`
	MinThreshold     int                 `gorm:"column:min_threshold;not null"`
	OptimalThreshold int                 `gorm:"column:optimal_threshold;not null"`
	ReorderQuantity  int                 `gorm:"column:reorder_quantity;not null"`
	WarehouseID      *string             `gorm:"column:warehouse_id"`
	VendorID         *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	PurchaseOrderID  *string             `gorm:"column:purchase_order_id"`
	Notes            *string             `gorm:"column:notes"`
	TriggeredAt      time.Time           `gorm:"column:triggered_at;autoCreateTime"`
	ResolvedAt       *time.Time          `gorm:"column:resolved_at"`
}

// TableName overrides the default pluralization.
func (ReorderTrigger) TableName() string { return "reorder_triggers" }
