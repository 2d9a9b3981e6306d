package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/procurement"
	"github.com/stocklinehq/stockline-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type routerTxRunner struct {
	db *gorm.DB
}

func (r routerTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type routerEmitter struct{}

func (routerEmitter) Emit(_ context.Context, tx *gorm.DB, _ outbox.DomainEvent) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	return nil
}

type routerPOCreator struct {
	calls int
}

func (f *routerPOCreator) CreatePurchaseOrder(_ context.Context, params procurement.CreatePurchaseOrderParams) (*procurement.PurchaseOrder, error) {
	f.calls++
	return &procurement.PurchaseOrder{
		ID:       fmt.Sprintf("po_%03d", f.calls),
		VendorID: params.VendorID.String(),
		Status:   "open",
	}, nil
}

func setupRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:routertest?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS skus (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sku_reorder_configs (
  sku_id TEXT PRIMARY KEY,
  min_threshold INTEGER NOT NULL DEFAULT 0,
  optimal_threshold INTEGER NOT NULL DEFAULT 0,
  auto_reorder_enabled INTEGER NOT NULL DEFAULT 0,
  preferred_vendor_id TEXT,
  warehouse_scope TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS inventory_levels (
  warehouse_id TEXT NOT NULL,
  sku_id TEXT NOT NULL,
  total_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (warehouse_id, sku_id)
);`,
		`CREATE TABLE IF NOT EXISTS reorder_triggers (
  id TEXT PRIMARY KEY,
  sku_id TEXT NOT NULL,
  trigger_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  inventory_level INTEGER NOT NULL,
  min_threshold INTEGER NOT NULL,
  optimal_threshold INTEGER NOT NULL,
  reorder_quantity INTEGER NOT NULL,
  warehouse_id TEXT,
  vendor_id TEXT,
  purchase_order_id TEXT,
  notes TEXT,
  triggered_at DATETIME,
  resolved_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_reorder_triggers_sku_pending
  ON reorder_triggers (sku_id) WHERE status = 'pending';`,
		`DELETE FROM reorder_triggers;`,
		`DELETE FROM inventory_levels;`,
		`DELETE FROM sku_reorder_configs;`,
		`DELETE FROM skus;`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	db := setupRouterTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	repo := reorder.NewRepository(db)
	svc, err := reorder.NewService(reorder.ServiceParams{
		Repo:        repo,
		DB:          routerTxRunner{db: db},
		Procurement: &routerPOCreator{},
		Outbox:      routerEmitter{},
		Logger:      logg,
		Planning:    config.PlanningConfig{LowBandUnits: 10, OverstockMarginPct: 25},
	})
	require.NoError(t, err)

	stats, err := reorder.NewStatsService(reorder.StatsParams{
		Repo:     repo,
		Logger:   logg,
		Planning: config.PlanningConfig{LowBandUnits: 10, OverstockMarginPct: 25},
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"

	return NewRouter(cfg, logg, stubPinger{}, stubPinger{}, stubPinger{}, svc, stats), db
}

func seedRouterSKU(t *testing.T, db *gorm.DB, code string, minT, optimalT, available int, vendorID *uuid.UUID, enabled bool) models.SKU {
	t.Helper()
	sku := models.SKU{ID: uuid.New(), Code: code, Name: "SKU " + code}
	require.NoError(t, db.Create(&sku).Error)
	cfg := models.SKUReorderConfig{
		SKUID:              sku.ID,
		MinThreshold:       minT,
		OptimalThreshold:   optimalT,
		AutoReorderEnabled: enabled,
		PreferredVendorID:  vendorID,
	}
	require.NoError(t, db.Create(&cfg).Error)
	level := models.InventoryLevel{WarehouseID: "wh-main", SKUID: sku.ID, TotalQty: available}
	require.NoError(t, db.Create(&level).Error)
	return sku
}

func TestRouterHealthLive(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "test", w.Header().Get("X-Stockline-Env"))
}

func TestRouterHealthReady(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterManualReorderHappyPath(t *testing.T) {
	router, db := setupRouter(t)
	vendorID := uuid.New()
	sku := seedRouterSKU(t, db, "RT-001", 10, 50, 4, &vendorID, true)

	body, err := json.Marshal(map[string]any{"sku_id": sku.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reorders/manual", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	outcome := envelope.Data.(map[string]any)
	require.Equal(t, "po_created", outcome["status"])
	require.NotEmpty(t, outcome["purchase_order_id"])
}

func TestRouterManualReorderValidation(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reorders/manual", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterManualReorderUnknownSKU(t *testing.T) {
	router, _ := setupRouter(t)

	body, err := json.Marshal(map[string]any{"sku_id": uuid.New()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reorders/manual", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterUpdateSettingsValidation(t *testing.T) {
	router, db := setupRouter(t)
	sku := seedRouterSKU(t, db, "RT-002", 10, 50, 30, nil, true)

	body, err := json.Marshal(map[string]any{"min_threshold": 50, "optimal_threshold": 10})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/skus/"+sku.ID.String()+"/reorder-settings", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterUpdateSettingsPersists(t *testing.T) {
	router, db := setupRouter(t)
	sku := seedRouterSKU(t, db, "RT-003", 10, 50, 30, nil, false)

	body, err := json.Marshal(map[string]any{
		"min_threshold":        5,
		"optimal_threshold":    25,
		"auto_reorder_enabled": true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/skus/"+sku.ID.String()+"/reorder-settings", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stored models.SKUReorderConfig
	require.NoError(t, db.Where("sku_id = ?", sku.ID).First(&stored).Error)
	require.Equal(t, 5, stored.MinThreshold)
	require.True(t, stored.AutoReorderEnabled)
}

func TestRouterHistoryRejectsBadSKU(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/skus/not-a-uuid/reorder-history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterHasPendingPerSKU(t *testing.T) {
	router, db := setupRouter(t)
	vendorID := uuid.New()
	busy := seedRouterSKU(t, db, "RT-005", 10, 50, 4, &vendorID, true)
	idle := seedRouterSKU(t, db, "RT-006", 10, 50, 40, &vendorID, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reorders/sweep", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// the sweep resolves triggers immediately, so re-seed a raw pending row
	require.NoError(t, db.Create(&models.ReorderTrigger{
		ID:               uuid.New(),
		SKUID:            busy.ID,
		TriggerType:      enums.TriggerTypeAutoSchedule,
		Status:           enums.TriggerStatusPending,
		InventoryLevel:   4,
		MinThreshold:     10,
		OptimalThreshold: 50,
		ReorderQuantity:  46,
	}).Error)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/skus/"+busy.ID.String()+"/reorder-pending", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.Equal(t, true, envelope.Data.(map[string]any)["pending"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/skus/"+idle.ID.String()+"/reorder-pending", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	envelope = types.SuccessEnvelope{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.Equal(t, false, envelope.Data.(map[string]any)["pending"])
}

func TestRouterPendingAndStatistics(t *testing.T) {
	router, db := setupRouter(t)
	vendorID := uuid.New()
	seedRouterSKU(t, db, "RT-004", 10, 50, 4, &vendorID, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reorders/pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reorders/statistics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	stats := envelope.Data.(map[string]any)
	require.Equal(t, float64(1), stats["critical_count"])
}
