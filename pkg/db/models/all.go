package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Platform{},
		&Listing{},
		&PriceHistoryEntry{},
		&InventoryHistoryEntry{},
		&CustomFieldHistoryEntry{},
		&PriceMutation{},
		&ErrorNotification{},
	}
}
