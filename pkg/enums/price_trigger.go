package enums

import "fmt"

// PriceTriggerType maps to price_mutations.trigger_type.
type PriceTriggerType string

const (
	PriceTriggerManual       PriceTriggerType = "manual"
	PriceTriggerAutoUndercut PriceTriggerType = "auto_undercut"
)

var validPriceTriggerTypes = []PriceTriggerType{
	PriceTriggerManual,
	PriceTriggerAutoUndercut,
}

// IsValid reports whether the value matches the canonical trigger enum.
func (p PriceTriggerType) IsValid() bool {
	for _, candidate := range validPriceTriggerTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceTriggerType converts raw input into PriceTriggerType.
func ParsePriceTriggerType(value string) (PriceTriggerType, error) {
	for _, candidate := range validPriceTriggerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price trigger type %q", value)
}
