package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
)

const planningConsumerName = "planning"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer writes reorder lifecycle events to BigQuery while honoring Redis
// idempotency. The warehouse table feeds the replenishment dashboards.
type Consumer struct {
	client      tableInserter
	table       string
	manager     idempotencyChecker
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a new planning consumer.
func NewConsumer(client tableInserter, table string, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:  client,
		table:   strings.TrimSpace(table),
		manager: manager,
		logg:    logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventReorderTriggered:       {},
			enums.EventReorderPOCreated:       {},
			enums.EventReorderFailed:          {},
			enums.EventReorderSettingsUpdated: {},
		},
	}, nil
}

// Process ingests the outbox envelope into BigQuery if the event is supported.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by planning consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, planningConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	row, err := buildRow(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build reorder event row", err)
		_ = c.manager.Delete(ctx, planningConsumerName, eventID)
		return err
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert reorder event row", err)
		_ = c.manager.Delete(ctx, planningConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "reorder event ingested")
	return nil
}

type reorderEventRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	TriggerID       *string            `bigquery:"trigger_id"`
	SKUID           *string            `bigquery:"sku_id"`
	VendorID        *string            `bigquery:"vendor_id"`
	PurchaseOrderID *string            `bigquery:"purchase_order_id"`
	WarehouseID     *string            `bigquery:"warehouse_id"`
	ReorderQuantity *int64             `bigquery:"reorder_quantity"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*reorderEventRow, error) {
	payload := map[string]any{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	return &reorderEventRow{
		EventID:         envelope.EventID,
		EventType:       string(eventType),
		OccurredAt:      envelope.OccurredAt,
		TriggerID:       stringValue(payload, "trigger_id"),
		SKUID:           stringValue(payload, "sku_id"),
		VendorID:        stringValue(payload, "vendor_id"),
		PurchaseOrderID: stringValue(payload, "purchase_order_id"),
		WarehouseID:     stringValue(payload, "warehouse_id"),
		ReorderQuantity: intValue(payload, "reorder_quantity"),
		Payload:         payloadJSON,
	}, nil
}

func stringValue(payload map[string]any, key string) *string {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		if str, ok := raw.(string); ok {
			trimmed := strings.TrimSpace(str)
			if trimmed != "" {
				return &trimmed
			}
		}
	}
	return nil
}

func intValue(payload map[string]any, key string) *int64 {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		// encoding/json decodes numbers into float64
		if num, ok := raw.(float64); ok {
			val := int64(num)
			return &val
		}
	}
	return nil
}
