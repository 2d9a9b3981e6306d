package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	triggerID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.ReorderTriggeredEvent{
		TriggerID:        triggerID,
		SKUID:            uuid.New(),
		TriggerType:      enums.TriggerTypeAutoSchedule,
		InventoryLevel:   3,
		MinThreshold:     5,
		OptimalThreshold: 20,
		ReorderQuantity:  17,
		TriggeredAt:      time.Now().UTC(),
	})

	event := models.OutboxEvent{
		EventType:     enums.EventReorderTriggered,
		AggregateType: enums.AggregateReorderTrigger,
		AggregateID:   triggerID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "planning-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.ReorderTriggeredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.TriggerID != triggerID || payload.ReorderQuantity != 17 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("inventory_adjusted"),
		AggregateType: enums.AggregateSKU,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventReorderTriggered,
		AggregateType: enums.AggregateSKU,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventReorderTriggered,
		AggregateType: enums.AggregateReorderTrigger,
		AggregateID:   uuid.Nil,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventReorderTriggered,
		AggregateType: enums.AggregateReorderTrigger,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryDecodeMessage(t *testing.T) {
	reg := newTestEventRegistry(t)

	skuID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.ReorderFailedEvent{
		TriggerID:  uuid.New(),
		SKUID:      skuID,
		Reason:     "no vendor configured",
		ResolvedAt: time.Now().UTC(),
	})

	envelope, decoded, err := reg.DecodeMessage(enums.EventReorderFailed, mustEnvelope(t, payloadBytes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("unexpected envelope version %d", envelope.Version)
	}
	payload, ok := decoded.(*payloads.ReorderFailedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", decoded)
	}
	if payload.SKUID != skuID || payload.Reason != "no vendor configured" {
		t.Fatalf("payload mismatch %+v", payload)
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		PlanningTopic: "planning-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
