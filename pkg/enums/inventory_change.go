package enums

import "fmt"

// InventoryChangeType maps to inventory_history.change_type.
type InventoryChangeType string

const (
	InventoryChangeSold       InventoryChangeType = "sold"
	InventoryChangeRestock    InventoryChangeType = "restock"
	InventoryChangeCorrection InventoryChangeType = "correction"
	InventoryChangeInitial    InventoryChangeType = "initial"
)

var validInventoryChangeTypes = []InventoryChangeType{
	InventoryChangeSold,
	InventoryChangeRestock,
	InventoryChangeCorrection,
	InventoryChangeInitial,
}

// IsValid reports whether the value matches the canonical change type enum.
func (c InventoryChangeType) IsValid() bool {
	for _, candidate := range validInventoryChangeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseInventoryChangeType converts raw input into InventoryChangeType.
func ParseInventoryChangeType(value string) (InventoryChangeType, error) {
	for _, candidate := range validInventoryChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory change type %q", value)
}

// ClassifyStockChange derives the change type from the sign of the stock delta.
func ClassifyStockChange(previous, next int) InventoryChangeType {
	switch {
	case next < previous:
		return InventoryChangeSold
	case next > previous:
		return InventoryChangeRestock
	default:
		return InventoryChangeCorrection
	}
}
