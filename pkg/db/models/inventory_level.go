package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLevel tracks on-hand and reserved counts per warehouse and SKU.
// The rows are owned by the inventory subsystem; planning only reads them.
type InventoryLevel struct {
	WarehouseID string    `gorm:"column:warehouse_id;primaryKey"`
	SKUID       uuid.UUID `gorm:"column:sku_id;type:uuid;primaryKey"`
	TotalQty    int       `gorm:"column:total_qty;not null;default:0"`
	ReservedQty int       `gorm:"column:reserved_qty;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (InventoryLevel) TableName() string { return "inventory_levels" }

// AvailableQty is the quantity not committed to outstanding orders.
func (l InventoryLevel) AvailableQty() int {
	return l.TotalQty - l.ReservedQty
}
