package enums

import "fmt"

// TriggerStatus tracks the lifecycle of a reorder trigger. Pending is the only
// non-terminal state; po_created and failed never transition again.
type TriggerStatus string

const (
	TriggerStatusPending   TriggerStatus = "pending"
	TriggerStatusPOCreated TriggerStatus = "po_created"
	TriggerStatusFailed    TriggerStatus = "failed"
)

var validTriggerStatuses = []TriggerStatus{
	TriggerStatusPending,
	TriggerStatusPOCreated,
	TriggerStatusFailed,
}

// String implements fmt.Stringer.
func (s TriggerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TriggerStatus.
func (s TriggerStatus) IsValid() bool {
	for _, candidate := range validTriggerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s TriggerStatus) IsTerminal() bool {
	return s == TriggerStatusPOCreated || s == TriggerStatusFailed
}

// ParseTriggerStatus converts raw input into a TriggerStatus.
func ParseTriggerStatus(value string) (TriggerStatus, error) {
	for _, candidate := range validTriggerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trigger status %q", value)
}
