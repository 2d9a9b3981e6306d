package reorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/pagination"
)

const pendingTriggerIndex = "ux_reorder_triggers_sku_pending"

// Repository handles reorder persistence: triggers, per-SKU configs and the
// availability reads the evaluator runs against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	InsertPending(ctx context.Context, trigger *models.ReorderTrigger) error
	HasPending(ctx context.Context, skuID uuid.UUID) (bool, error)
	ListPending(ctx context.Context, limit int) ([]models.ReorderTrigger, error)
	FindTrigger(ctx context.Context, id uuid.UUID) (*models.ReorderTrigger, error)
	ClaimTx(tx *gorm.DB, id uuid.UUID, to enums.TriggerStatus, updates map[string]any) (bool, error)
	ListHistory(ctx context.Context, q HistoryQuery) ([]models.ReorderTrigger, *pagination.Cursor, error)

	FindSKU(ctx context.Context, id uuid.UUID) (*models.SKU, error)
	FindConfig(ctx context.Context, skuID uuid.UUID) (*models.SKUReorderConfig, error)
	UpsertConfig(ctx context.Context, cfg *models.SKUReorderConfig) error
	ListConfigs(ctx context.Context) ([]models.SKUReorderConfig, error)
	ListEnabledConfigs(ctx context.Context) ([]models.SKUReorderConfig, error)

	AvailableQty(ctx context.Context, skuID uuid.UUID, scope []string) (int, error)
	ListInventoryLevels(ctx context.Context) ([]models.InventoryLevel, error)
	CountSKUs(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reorder repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertPending creates a pending trigger unless the SKU already has one. The
// partial unique index backs the pre-check, so concurrent inserts collapse
// onto a single pending row.
func (r *repository) InsertPending(ctx context.Context, trigger *models.ReorderTrigger) error {
	exists, err := r.HasPending(ctx, trigger.SKUID)
	if err != nil {
		return err
	}
	if exists {
		return pkgerrors.New(pkgerrors.CodeConflict, "sku already has a pending reorder trigger")
	}

	trigger.Status = enums.TriggerStatusPending
	if trigger.ID == uuid.Nil {
		trigger.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(trigger).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, pendingTriggerIndex) {
			return pkgerrors.New(pkgerrors.CodeConflict, "sku already has a pending reorder trigger")
		}
		return err
	}
	return nil
}

func (r *repository) HasPending(ctx context.Context, skuID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReorderTrigger{}).
		Where("sku_id = ? AND status = ?", skuID, enums.TriggerStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.ReorderTrigger, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.TriggerStatusPending).
		Order("triggered_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ReorderTrigger
	err := query.Find(&rows).Error
	return rows, err
}

func (r *repository) FindTrigger(ctx context.Context, id uuid.UUID) (*models.ReorderTrigger, error) {
	var trigger models.ReorderTrigger
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trigger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trigger, nil
}

// ClaimTx flips a pending trigger into a terminal status. The WHERE clause is
// the guard: a row already resolved by someone else affects zero rows and the
// caller backs off.
func (r *repository) ClaimTx(tx *gorm.DB, id uuid.UUID, to enums.TriggerStatus, updates map[string]any) (bool, error) {
	if tx == nil {
		return false, errors.New("transaction required")
	}
	if !to.IsTerminal() {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, "claim target must be a terminal status")
	}

	merged := map[string]any{
		"status":      to,
		"resolved_at": time.Now().UTC(),
	}
	for k, v := range updates {
		merged[k] = v
	}

	res := tx.Model(&models.ReorderTrigger{}).
		Where("id = ? AND status = ?", id, enums.TriggerStatusPending).
		Updates(merged)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListHistory(ctx context.Context, q HistoryQuery) ([]models.ReorderTrigger, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(q.Page.Limit)

	query := r.db.WithContext(ctx).
		Where("sku_id = ?", q.SKUID).
		Order("triggered_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(q.Page.Limit))

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}

	cursor, err := pagination.ParseCursor(q.Page.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(triggered_at < ?) OR (triggered_at = ? AND id < ?)",
			cursor.TriggeredAt, cursor.TriggeredAt, cursor.ID,
		)
	}

	var rows []models.ReorderTrigger
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{TriggeredAt: last.TriggeredAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) FindSKU(ctx context.Context, id uuid.UUID) (*models.SKU, error) {
	var sku models.SKU
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sku).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sku, nil
}

func (r *repository) FindConfig(ctx context.Context, skuID uuid.UUID) (*models.SKUReorderConfig, error) {
	var cfg models.SKUReorderConfig
	err := r.db.WithContext(ctx).Where("sku_id = ?", skuID).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) UpsertConfig(ctx context.Context, cfg *models.SKUReorderConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sku_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_threshold",
				"optimal_threshold",
				"auto_reorder_enabled",
				"preferred_vendor_id",
				"warehouse_scope",
				"updated_at",
			}),
		}).
		Create(cfg).Error
}

func (r *repository) ListConfigs(ctx context.Context) ([]models.SKUReorderConfig, error) {
	var rows []models.SKUReorderConfig
	err := r.db.WithContext(ctx).Order("sku_id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListEnabledConfigs(ctx context.Context) ([]models.SKUReorderConfig, error) {
	var rows []models.SKUReorderConfig
	err := r.db.WithContext(ctx).
		Where("auto_reorder_enabled = ?", true).
		Order("sku_id ASC").
		Find(&rows).Error
	return rows, err
}

// AvailableQty sums availability across the given warehouse scope. An empty
// scope means every warehouse.
func (r *repository) AvailableQty(ctx context.Context, skuID uuid.UUID, scope []string) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryLevel{}).
		Where("sku_id = ?", skuID)
	if len(scope) > 0 {
		query = query.Where("warehouse_id IN (?)", scope)
	}

	var available *int
	err := query.
		Select("SUM(total_qty - reserved_qty)").
		Scan(&available).Error
	if err != nil {
		return 0, err
	}
	if available == nil {
		return 0, nil
	}
	return *available, nil
}

func (r *repository) ListInventoryLevels(ctx context.Context) ([]models.InventoryLevel, error) {
	var rows []models.InventoryLevel
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *repository) CountSKUs(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SKU{}).Count(&count).Error
	return count, err
}
