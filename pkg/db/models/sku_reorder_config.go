package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SKUReorderConfig holds the planning thresholds for one SKU. It is created
// alongside the SKU master row and never deleted independently of it.
type SKUReorderConfig struct {
	SKUID              uuid.UUID      `gorm:"column:sku_id;type:uuid;primaryKey"`
	MinThreshold       int            `gorm:"column:min_threshold;not null;default:0"`
	OptimalThreshold   int            `gorm:"column:optimal_threshold;not null;default:0"`
	AutoReorderEnabled bool           `gorm:"column:auto_reorder_enabled;not null;default:false"`
	PreferredVendorID  *uuid.UUID     `gorm:"column:preferred_vendor_id;type:uuid"`
	WarehouseScope     pq.StringArray `gorm:"column:warehouse_scope;type:text[]"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (SKUReorderConfig) TableName() string { return "sku_reorder_configs" }

// WatchesWarehouse reports whether the config applies to the given warehouse.
// An empty scope watches every warehouse.
func (c SKUReorderConfig) WatchesWarehouse(warehouseID string) bool {
	if len(c.WarehouseScope) == 0 {
		return true
	}
	for _, id := range c.WarehouseScope {
		if id == warehouseID {
			return true
		}
	}
	return false
}
