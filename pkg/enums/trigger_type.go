package enums

import "fmt"

// TriggerType records what initiated a reorder trigger.
type TriggerType string

const (
	TriggerTypeManual          TriggerType = "manual"
	TriggerTypeAutoSchedule    TriggerType = "auto_schedule"
	TriggerTypeInventoryChange TriggerType = "inventory_change"
)

var validTriggerTypes = []TriggerType{
	TriggerTypeManual,
	TriggerTypeAutoSchedule,
	TriggerTypeInventoryChange,
}

// String implements fmt.Stringer.
func (t TriggerType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TriggerType.
func (t TriggerType) IsValid() bool {
	for _, candidate := range validTriggerTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTriggerType converts raw input into a TriggerType.
func ParseTriggerType(value string) (TriggerType, error) {
	for _, candidate := range validTriggerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trigger type %q", value)
}
