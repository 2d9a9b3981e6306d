package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.PlanningTopic == "" {
		return nil, fmt.Errorf("planning topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	planningTopic := cfg.PlanningTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventReorderTriggered,
			AggregateType:  enums.AggregateReorderTrigger,
			Topic:          planningTopic,
			PayloadFactory: func() interface{} { return &payloads.ReorderTriggeredEvent{} },
		},
		{
			EventType:      enums.EventReorderPOCreated,
			AggregateType:  enums.AggregateReorderTrigger,
			Topic:          planningTopic,
			PayloadFactory: func() interface{} { return &payloads.ReorderPOCreatedEvent{} },
		},
		{
			EventType:      enums.EventReorderFailed,
			AggregateType:  enums.AggregateReorderTrigger,
			Topic:          planningTopic,
			PayloadFactory: func() interface{} { return &payloads.ReorderFailedEvent{} },
		},
		{
			EventType:      enums.EventReorderSettingsUpdated,
			AggregateType:  enums.AggregateSKU,
			Topic:          planningTopic,
			PayloadFactory: func() interface{} { return &payloads.ReorderSettingsUpdatedEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, payload, err := r.decode(desc, event.Payload)
	if err != nil {
		return nil, err
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   *envelope,
		Payload:    payload,
	}, nil
}

// DecodeMessage decodes a raw envelope as delivered over the wire, keyed by
// the event type carried in the message attributes.
func (r *EventRegistry) DecodeMessage(eventType enums.OutboxEventType, raw []byte) (*outbox.PayloadEnvelope, interface{}, error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return nil, nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", eventType))
	}
	envelope, payload, err := r.decode(desc, raw)
	if err != nil {
		return nil, nil, err
	}
	return envelope, payload, nil
}

func (r *EventRegistry) decode(desc EventDescriptor, raw []byte) (*outbox.PayloadEnvelope, interface{}, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", desc.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", desc.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", desc.EventType, err))
	}

	return &envelope, payload, nil
}
