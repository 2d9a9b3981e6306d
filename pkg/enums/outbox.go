package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateReorderTrigger OutboxAggregateType = "reorder_trigger"
	AggregateSKU            OutboxAggregateType = "sku"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateReorderTrigger,
	AggregateSKU,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventReorderTriggered       OutboxEventType = "reorder_triggered"
	EventReorderPOCreated       OutboxEventType = "reorder_po_created"
	EventReorderFailed          OutboxEventType = "reorder_failed"
	EventReorderSettingsUpdated OutboxEventType = "reorder_settings_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventReorderTriggered,
	EventReorderPOCreated,
	EventReorderFailed,
	EventReorderSettingsUpdated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason categorizes why an outbox row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts_exceeded"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
