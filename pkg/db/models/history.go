package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

// Tracked custom field names in custom_field_history.
const (
	FieldIsLowest      = "is_lowest"
	FieldPayoutPrice   = "payout_price"
	FieldCommissionBPS = "commission_bps"
	FieldBrand         = "brand"
)

// PriceHistoryEntry is one observed market price change.
type PriceHistoryEntry struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  int64           `gorm:"column:listing_id;not null;index:idx_price_history_timeline,priority:1"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	RecordedAt time.Time       `gorm:"column:recorded_at;not null;index:idx_price_history_timeline,priority:2"`
}

func (PriceHistoryEntry) TableName() string { return "price_history" }

func (e *PriceHistoryEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// InventoryHistoryEntry is one observed stock change.
type InventoryHistoryEntry struct {
	ID         uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  int64                     `gorm:"column:listing_id;not null;index:idx_inventory_history_timeline,priority:1"`
	Stock      int                       `gorm:"column:stock;not null"`
	ChangeType enums.InventoryChangeType `gorm:"column:change_type;type:text;not null"`
	RecordedAt time.Time                 `gorm:"column:recorded_at;not null;index:idx_inventory_history_timeline,priority:2"`
}

func (InventoryHistoryEntry) TableName() string { return "inventory_history" }

func (e *InventoryHistoryEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CustomFieldHistoryEntry records a change of a tracked custom field.
// OldValue is nil only for the first observation of that field.
type CustomFieldHistoryEntry struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  int64     `gorm:"column:listing_id;not null;index:idx_custom_field_history_timeline,priority:1"`
	FieldName  string    `gorm:"column:field_name;not null"`
	OldValue   *string   `gorm:"column:old_value"`
	NewValue   string    `gorm:"column:new_value;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index:idx_custom_field_history_timeline,priority:2"`
}

func (CustomFieldHistoryEntry) TableName() string { return "custom_field_history" }

func (e *CustomFieldHistoryEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
