package reconcile

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	dbtypes "github.com/angelmondragon/resellsync/pkg/db/types"
	"github.com/angelmondragon/resellsync/pkg/enums"
)

type changeKind int

const (
	changeNone changeKind = iota
	changeNew
	changeDirty
)

// change is one staged listing write plus the ledger rows it produces.
type change struct {
	kind         changeKind
	row          models.Listing
	prices       []models.PriceHistoryEntry
	inventory    []models.InventoryHistoryEntry
	customFields []models.CustomFieldHistoryEntry
}

func toListing(platformID uuid.UUID, item ScrapedItem, now time.Time) models.Listing {
	stock := item.Stock
	row := models.Listing{
		ID:                  item.ID,
		PlatformID:          platformID,
		ProductSKU:          item.SKU,
		VariantID:           item.VariantID,
		ProductName:         item.Title,
		ImageURL:            item.ImageURL,
		Size:                item.Size,
		CurrentStock:        &stock,
		IsLowest:            item.IsLowest,
		Brand:               item.Brand,
		PayoutPrice:         item.PayoutPrice,
		CommissionBPS:       item.CommissionBPS,
		ExternalListingRefs: dbtypes.ListingRefs(item.ExternalListingRefs).Clean(),
		LastEventAt:         now,
		UpdatedAt:           now,
	}
	if item.Price != nil {
		row.CurrentPrice = decimal.NewNullDecimal(item.Price.Round(2))
	}
	return row
}

// diffItem classifies next against prev (nil when never seen) and stages history rows.
func diffItem(prev *models.Listing, next models.Listing, now time.Time) change {
	if prev == nil {
		return newChange(next, now)
	}

	priceChanged := !nullDecimalEqual(prev.CurrentPrice, next.CurrentPrice)
	stockChanged := !intPtrEqual(prev.CurrentStock, next.CurrentStock)
	dirty := priceChanged ||
		stockChanged ||
		prev.IsLowest != next.IsLowest ||
		!intPtrEqual(prev.PayoutPrice, next.PayoutPrice) ||
		!intPtrEqual(prev.CommissionBPS, next.CommissionBPS) ||
		!strPtrEqual(prev.ImageURL, next.ImageURL) ||
		!strPtrEqual(prev.Brand, next.Brand) ||
		!strPtrEqual(prev.Size, next.Size) ||
		prev.ProductName != next.ProductName ||
		!prev.ExternalListingRefs.Equal(next.ExternalListingRefs)
	if !dirty {
		return change{kind: changeNone}
	}

	c := change{kind: changeDirty, row: next}
	if priceChanged && next.CurrentPrice.Valid {
		c.prices = append(c.prices, models.PriceHistoryEntry{
			ListingID:  next.ID,
			Price:      next.CurrentPrice.Decimal,
			RecordedAt: now,
		})
	}
	if stockChanged && next.CurrentStock != nil {
		changeType := enums.InventoryChangeInitial
		if prev.CurrentStock != nil {
			changeType = enums.ClassifyStockChange(*prev.CurrentStock, *next.CurrentStock)
		}
		c.inventory = append(c.inventory, models.InventoryHistoryEntry{
			ListingID:  next.ID,
			Stock:      *next.CurrentStock,
			ChangeType: changeType,
			RecordedAt: now,
		})
	}
	for _, field := range trackedFields {
		oldValue, hadOld := field.value(*prev)
		newValue, hasNew := field.value(next)
		if !hasNew || (hadOld && oldValue == newValue) {
			continue
		}
		entry := models.CustomFieldHistoryEntry{
			ListingID:  next.ID,
			FieldName:  field.name,
			NewValue:   newValue,
			RecordedAt: now,
		}
		if hadOld {
			old := oldValue
			entry.OldValue = &old
		}
		c.customFields = append(c.customFields, entry)
	}
	return c
}

func newChange(next models.Listing, now time.Time) change {
	c := change{kind: changeNew, row: next}
	if next.CurrentPrice.Valid {
		c.prices = append(c.prices, models.PriceHistoryEntry{
			ListingID:  next.ID,
			Price:      next.CurrentPrice.Decimal,
			RecordedAt: now,
		})
	}
	if next.CurrentStock != nil {
		c.inventory = append(c.inventory, models.InventoryHistoryEntry{
			ListingID:  next.ID,
			Stock:      *next.CurrentStock,
			ChangeType: enums.InventoryChangeInitial,
			RecordedAt: now,
		})
	}
	for _, field := range trackedFields {
		value, ok := field.value(next)
		if !ok {
			continue
		}
		c.customFields = append(c.customFields, models.CustomFieldHistoryEntry{
			ListingID:  next.ID,
			FieldName:  field.name,
			NewValue:   value,
			RecordedAt: now,
		})
	}
	return c
}

type trackedField struct {
	name  string
	value func(models.Listing) (string, bool)
}

var trackedFields = []trackedField{
	{name: models.FieldIsLowest, value: func(l models.Listing) (string, bool) {
		return strconv.FormatBool(l.IsLowest), true
	}},
	{name: models.FieldPayoutPrice, value: func(l models.Listing) (string, bool) {
		return intPtrString(l.PayoutPrice)
	}},
	{name: models.FieldCommissionBPS, value: func(l models.Listing) (string, bool) {
		return intPtrString(l.CommissionBPS)
	}},
	{name: models.FieldBrand, value: func(l models.Listing) (string, bool) {
		if l.Brand == nil {
			return "", false
		}
		return *l.Brand, true
	}},
}

func intPtrString(v *int) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.Itoa(*v), true
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
