package reorder

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/redis"
)

const statsCacheScope = "reorder:stats"

var (
	errNilRepo   = errors.New("repo is required")
	errNilLogger = errors.New("logger is required")
)

type statsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// StatsParams groups dependencies for the statistics projection.
type StatsParams struct {
	Repo     Repository
	Cache    statsCache
	Logger   *logger.Logger
	Planning config.PlanningConfig
}

// StatsService computes the stock-position dashboard numbers. Results are
// cached briefly; the tiles tolerate a short staleness window.
type StatsService struct {
	repo     Repository
	cache    statsCache
	logg     *logger.Logger
	planning config.PlanningConfig
}

// NewStatsService builds the statistics projection.
func NewStatsService(params StatsParams) (*StatsService, error) {
	if params.Repo == nil {
		return nil, errNilRepo
	}
	if params.Logger == nil {
		return nil, errNilLogger
	}
	return &StatsService{
		repo:     params.Repo,
		cache:    params.Cache,
		logg:     params.Logger,
		planning: params.Planning,
	}, nil
}

// Statistics returns the cached projection when fresh, recomputing otherwise.
func (s *StatsService) Statistics(ctx context.Context) (*Statistics, error) {
	if s.cache != nil {
		key := s.cache.CacheKey(statsCacheScope, "global")
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != "" {
			var cached Statistics
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if err != nil && !redis.IsNil(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stats cache read failed")
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		ttl := s.planning.StatsCacheTTL
		if ttl <= 0 {
			ttl = 3 * time.Minute
		}
		if raw, err := json.Marshal(stats); err == nil {
			key := s.cache.CacheKey(statsCacheScope, "global")
			if err := s.cache.Set(ctx, key, string(raw), ttl); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stats cache write failed")
			}
		}
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*Statistics, error) {
	configs, err := s.repo.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := s.repo.ListInventoryLevels(ctx)
	if err != nil {
		return nil, err
	}
	totalSKUs, err := s.repo.CountSKUs(ctx)
	if err != nil {
		return nil, err
	}

	// availability per sku+warehouse, aggregated in memory so each config's
	// warehouse scope can be honored without one query per SKU
	bySKU := make(map[uuid.UUID][]models.InventoryLevel, len(levels))
	for _, level := range levels {
		bySKU[level.SKUID] = append(bySKU[level.SKUID], level)
	}

	stats := &Statistics{
		TotalSKUs:   int(totalSKUs),
		GeneratedAt: time.Now().UTC(),
	}

	for _, cfg := range configs {
		if cfg.AutoReorderEnabled {
			stats.AutoReorderActive++
		}

		available := 0
		for _, level := range bySKU[cfg.SKUID] {
			if cfg.WatchesWarehouse(level.WarehouseID) {
				available += level.AvailableQty()
			}
		}

		switch s.classify(cfg, available) {
		case enums.StockBandCritical:
			stats.CriticalCount++
		case enums.StockBandLow:
			stats.LowCount++
		case enums.StockBandOverstocked:
			stats.OverstockedCount++
		default:
			stats.HealthyCount++
		}
	}

	stats.CoveragePct = coveragePct(len(configs), int(totalSKUs))
	return stats, nil
}

// classify buckets availability into dashboard bands. Critical mirrors the
// trigger condition; low adds a configurable band above it; overstocked sits
// above optimal by a configurable margin.
func (s *StatsService) classify(cfg models.SKUReorderConfig, available int) enums.StockBand {
	if available <= cfg.MinThreshold {
		return enums.StockBandCritical
	}

	lowBand := s.planning.LowBandUnits
	if lowBand < 0 {
		lowBand = 0
	}
	if available <= cfg.MinThreshold+lowBand {
		return enums.StockBandLow
	}

	margin := decimal.NewFromInt(int64(s.planning.OverstockMarginPct))
	ceiling := decimal.NewFromInt(int64(cfg.OptimalThreshold)).
		Mul(decimal.NewFromInt(100).Add(margin)).
		Div(decimal.NewFromInt(100))
	if decimal.NewFromInt(int64(available)).GreaterThan(ceiling) {
		return enums.StockBandOverstocked
	}

	return enums.StockBandHealthy
}

func coveragePct(configured, total int) string {
	if total <= 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(configured)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1).
		String()
}
