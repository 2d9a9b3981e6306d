package reorder

import (
	"fmt"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
)

// Decision is the outcome of evaluating one SKU against its thresholds. A nil
// decision means no reorder is warranted.
type Decision struct {
	InventoryLevel   int
	MinThreshold     int
	OptimalThreshold int
	ReorderQty       int
}

// Actionable reports whether the decision should produce a purchase order.
// A zero-quantity decision is reported but never ordered.
func (d *Decision) Actionable() bool {
	return d != nil && d.ReorderQty > 0
}

// Evaluate applies the threshold policy to the current availability. The rule
// set is deliberately total: the same inputs always yield the same decision.
//
//   - negative quantities or thresholds are rejected outright
//   - automation disabled means no decision, regardless of stock position
//   - stock strictly above min_threshold means no decision
//   - otherwise the reorder quantity tops the SKU back up to optimal
func Evaluate(cfg models.SKUReorderConfig, available int) (*Decision, error) {
	if available < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("available quantity %d is negative", available))
	}
	if cfg.MinThreshold < 0 || cfg.OptimalThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thresholds cannot be negative")
	}

	if !cfg.AutoReorderEnabled {
		return nil, nil
	}
	if available > cfg.MinThreshold {
		return nil, nil
	}

	qty := cfg.OptimalThreshold - available
	if qty < 0 {
		qty = 0
	}

	return &Decision{
		InventoryLevel:   available,
		MinThreshold:     cfg.MinThreshold,
		OptimalThreshold: cfg.OptimalThreshold,
		ReorderQty:       qty,
	}, nil
}
