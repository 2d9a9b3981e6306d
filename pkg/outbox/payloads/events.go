package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/enums"
)

// ReorderTriggeredEvent is emitted when a pending trigger lands in the queue.
type ReorderTriggeredEvent struct {
	TriggerID        uuid.UUID         `json:"trigger_id"`
	SKUID            uuid.UUID         `json:"sku_id"`
	TriggerType      enums.TriggerType `json:"trigger_type"`
	InventoryLevel   int               `json:"inventory_level"`
	MinThreshold     int               `json:"min_threshold"`
	OptimalThreshold int               `json:"optimal_threshold"`
	ReorderQuantity  int               `json:"reorder_quantity"`
	WarehouseID      *string           `json:"warehouse_id,omitempty"`
	TriggeredAt      time.Time         `json:"triggered_at"`
}

// ReorderPOCreatedEvent reports a trigger resolved into a purchase order.
type ReorderPOCreatedEvent struct {
	TriggerID       uuid.UUID `json:"trigger_id"`
	SKUID           uuid.UUID `json:"sku_id"`
	VendorID        uuid.UUID `json:"vendor_id"`
	PurchaseOrderID string    `json:"purchase_order_id"`
	ReorderQuantity int       `json:"reorder_quantity"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

// ReorderFailedEvent reports a trigger that could not be fulfilled.
type ReorderFailedEvent struct {
	TriggerID  uuid.UUID `json:"trigger_id"`
	SKUID      uuid.UUID `json:"sku_id"`
	Reason     string    `json:"reason"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ReorderSettingsUpdatedEvent mirrors a threshold/automation config change.
type ReorderSettingsUpdatedEvent struct {
	SKUID              uuid.UUID  `json:"sku_id"`
	MinThreshold       int        `json:"min_threshold"`
	OptimalThreshold   int        `json:"optimal_threshold"`
	AutoReorderEnabled bool       `json:"auto_reorder_enabled"`
	PreferredVendorID  *uuid.UUID `json:"preferred_vendor_id,omitempty"`
	WarehouseScope     []string   `json:"warehouse_scope,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
