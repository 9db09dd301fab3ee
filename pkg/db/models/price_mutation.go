package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

// PriceMutation is the append-only audit row for every attempted payout change.
type PriceMutation struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ListingID             int64                  `gorm:"column:listing_id;not null;index:idx_price_mutations_listing_created,priority:1"`
	OldPayoutPrice        *int                   `gorm:"column:old_payout_price"`
	NewPayoutPrice        int                    `gorm:"column:new_payout_price;not null"`
	OldProjectedPrice     *int                   `gorm:"column:old_projected_price"`
	NewProjectedPrice     int                    `gorm:"column:new_projected_price;not null"`
	TriggerType           enums.PriceTriggerType `gorm:"column:trigger_type;type:text;not null"`
	TriggerReason         string                 `gorm:"column:trigger_reason;not null"`
	MarketLowestAtTrigger decimal.NullDecimal    `gorm:"column:market_lowest_at_trigger;type:numeric(12,2)"`
	Success               bool                   `gorm:"column:success;not null"`
	ErrorMessage          *string                `gorm:"column:error_message"`
	CreatedAt             time.Time              `gorm:"column:created_at;not null;index:idx_price_mutations_listing_created,priority:2"`
}

func (PriceMutation) TableName() string { return "price_mutations" }

func (m *PriceMutation) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
