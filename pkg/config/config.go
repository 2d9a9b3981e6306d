package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOCKLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Procurement  ProcurementConfig
	Planning     PlanningConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKLINE_DB_DSN"`
	Driver string `envconfig:"STOCKLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOCKLINE_DB_HOST"`
	Port     int    `envconfig:"STOCKLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"STOCKLINE_DB_USER"`
	Password string `envconfig:"STOCKLINE_DB_PASSWORD"`
	Name     string `envconfig:"STOCKLINE_DB_NAME"`
	SSLMode  string `envconfig:"STOCKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db dsn or host/user/name required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKLINE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"STOCKLINE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOCKLINE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STOCKLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOCKLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	InventorySubscription string `envconfig:"STOCKLINE_PUBSUB_INVENTORY_SUBSCRIPTION"`
	PlanningSubscription  string `envconfig:"STOCKLINE_PUBSUB_PLANNING_SUBSCRIPTION"`
	PlanningTopic         string `envconfig:"STOCKLINE_PUBSUB_PLANNING_TOPIC"`
}

type BigQueryConfig struct {
	Dataset       string `envconfig:"STOCKLINE_BIGQUERY_DATASET"`
	PlanningTable string `envconfig:"STOCKLINE_BIGQUERY_PLANNING_TABLE" default:"reorder_events"`
}

// ProcurementConfig points at the purchasing system's HTTP API.
type ProcurementConfig struct {
	BaseURL string        `envconfig:"STOCKLINE_PROCUREMENT_BASE_URL"`
	APIKey  string        `envconfig:"STOCKLINE_PROCUREMENT_API_KEY"`
	Timeout time.Duration `envconfig:"STOCKLINE_PROCUREMENT_TIMEOUT" default:"15s"`
}

// PlanningConfig carries the reorder policy knobs.
type PlanningConfig struct {
	// LowBandUnits widens the "low" classification band above the min threshold.
	LowBandUnits int `envconfig:"STOCKLINE_PLANNING_LOW_BAND_UNITS" default:"10"`
	// OverstockMarginPct marks a SKU overstocked above optimal*(1+pct/100).
	OverstockMarginPct int           `envconfig:"STOCKLINE_PLANNING_OVERSTOCK_MARGIN_PCT" default:"25"`
	StatsCacheTTL      time.Duration `envconfig:"STOCKLINE_PLANNING_STATS_CACHE_TTL" default:"3m"`
	SweepInterval      time.Duration `envconfig:"STOCKLINE_PLANNING_SWEEP_INTERVAL" default:"15m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOCKLINE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOCKLINE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOCKLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
