package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ScrapedItem is one normalized marketplace inventory unit.
type ScrapedItem struct {
	ID                  int64            `json:"id" validate:"required,gt=0"`
	SKU                 string           `json:"sku" validate:"required"`
	VariantID           *string          `json:"variant_id,omitempty"`
	Title               string           `json:"title" validate:"required"`
	ImageURL            *string          `json:"image_url,omitempty"`
	Size                *string          `json:"size,omitempty"`
	Price               *decimal.Decimal `json:"price,omitempty"`
	Stock               int              `json:"stock" validate:"gte=-1"`
	IsLowest            bool             `json:"is_lowest"`
	Brand               *string          `json:"brand,omitempty"`
	PayoutPrice         *int             `json:"payout_price,omitempty" validate:"omitempty,gte=0"`
	CommissionBPS       *int             `json:"commission_bps,omitempty" validate:"omitempty,gte=0,lte=10000"`
	ExternalListingRefs []string         `json:"external_listing_refs"`
}

// SnapshotSource fetches the current snapshot of one platform.
type SnapshotSource interface {
	Name() string
	BaseURL() string
	Fetch(ctx context.Context) ([]ScrapedItem, error)
}

// SyncStats summarizes one reconciliation run.
type SyncStats struct {
	Total           int           `json:"total"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	Unchanged       int           `json:"unchanged"`
	Invalid         int           `json:"invalid"`
	ChunksOK        int           `json:"chunks_ok"`
	ChunksFailed    int           `json:"chunks_failed"`
	PriceRows       int           `json:"price_rows"`
	InventoryRows   int           `json:"inventory_rows"`
	CustomFieldRows int           `json:"custom_field_rows"`
	Duration        time.Duration `json:"duration"`
	PartialFetch    bool          `json:"partial_fetch"`
	Warning         string        `json:"warning,omitempty"`
}

// Fields flattens the stats for structured logging.
func (s SyncStats) Fields() map[string]any {
	fields := map[string]any{
		"total":             s.Total,
		"inserted":          s.Inserted,
		"updated":           s.Updated,
		"unchanged":         s.Unchanged,
		"invalid":           s.Invalid,
		"chunks_ok":         s.ChunksOK,
		"chunks_failed":     s.ChunksFailed,
		"price_rows":        s.PriceRows,
		"inventory_rows":    s.InventoryRows,
		"custom_field_rows": s.CustomFieldRows,
		"duration_ms":       s.Duration.Milliseconds(),
	}
	if s.Warning != "" {
		fields["warning"] = s.Warning
	}
	return fields
}

// partialFetchWarning flags snapshots that shrank below ratio of the previous listing count.
func partialFetchWarning(prevCount int64, got int, ratio float64) string {
	if prevCount <= 0 || ratio <= 0 {
		return ""
	}
	if float64(got) >= float64(prevCount)*ratio {
		return ""
	}
	drop := (1 - float64(got)/float64(prevCount)) * 100
	return fmt.Sprintf("possible partial fetch: count dropped from %d to %d (-%.1f%%)", prevCount, got, drop)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}
