package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/resellsync/pkg/db/types"
)

// Listing is the current-state mirror of one marketplace inventory unit.
type Listing struct {
	ID                  int64               `gorm:"column:id;primaryKey;autoIncrement:false"`
	PlatformID          uuid.UUID           `gorm:"column:platform_id;type:uuid;not null;index:idx_listings_identity,priority:1"`
	ProductSKU          string              `gorm:"column:product_sku;not null;index:idx_listings_identity,priority:2"`
	VariantID           *string             `gorm:"column:variant_id;index:idx_listings_identity,priority:3"`
	ProductName         string              `gorm:"column:product_name;not null"`
	ImageURL            *string             `gorm:"column:image_url"`
	Size                *string             `gorm:"column:size"`
	CurrentPrice        decimal.NullDecimal `gorm:"column:current_price;type:numeric(12,2)"`
	CurrentStock        *int                `gorm:"column:current_stock"`
	IsLowest            bool                `gorm:"column:is_lowest;not null;default:false"`
	Brand               *string             `gorm:"column:brand"`
	PayoutPrice         *int                `gorm:"column:payout_price"`
	CommissionBPS       *int                `gorm:"column:commission_bps"`
	ExternalListingRefs dbtypes.ListingRefs `gorm:"column:external_listing_refs;type:jsonb;not null"`
	AutoRepriceEnabled  bool                `gorm:"column:auto_reprice_enabled;not null;default:false"`
	StopLossPrice       *int                `gorm:"column:stop_loss_price"`
	LastEventAt         time.Time           `gorm:"column:last_event_at;autoCreateTime:false"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Listing) TableName() string { return "listings" }

// SyncColumns are owned by reconciliation and overwritten on conflict.
// auto_reprice_enabled and stop_loss_price are user-owned and never listed here.
var SyncColumns = []string{
	"platform_id",
	"product_sku",
	"variant_id",
	"product_name",
	"image_url",
	"size",
	"current_price",
	"current_stock",
	"is_lowest",
	"brand",
	"payout_price",
	"commission_bps",
	"external_listing_refs",
	"last_event_at",
	"updated_at",
}

// VariantKey returns the variant id or "" when absent.
func (l Listing) VariantKey() string {
	if l.VariantID == nil {
		return ""
	}
	return *l.VariantID
}

// SizeKey returns the size or "" when absent.
func (l Listing) SizeKey() string {
	if l.Size == nil {
		return ""
	}
	return *l.Size
}
