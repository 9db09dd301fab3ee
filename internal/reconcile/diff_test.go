package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

func TestDiffItemDirtyWithoutStockDeltaEmitsNoInventoryRow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	platformID := uuid.New()
	price := decimal.NewFromInt(1000)
	item := ScrapedItem{ID: 1, SKU: "A", Title: "A", Price: &price, Stock: 2, ExternalListingRefs: []string{"r1"}}
	prev := toListing(platformID, item, now)

	image := "https://img/1.png"
	item.ImageURL = &image
	c := diffItem(&prev, toListing(platformID, item, now.Add(time.Minute)), now.Add(time.Minute))
	if c.kind != changeDirty {
		t.Fatalf("expected dirty, got %v", c.kind)
	}
	if len(c.inventory) != 0 || len(c.prices) != 0 || len(c.customFields) != 0 {
		t.Fatalf("expected no ledger rows, got %+v", c)
	}
}

func TestDiffItemRefsOrderMatters(t *testing.T) {
	now := time.Now().UTC()
	platformID := uuid.New()
	item := ScrapedItem{ID: 1, SKU: "A", Title: "A", Stock: 1, ExternalListingRefs: []string{"r1", "r2"}}
	prev := toListing(platformID, item, now)

	item.ExternalListingRefs = []string{"r1", "r2", " r1 ", ""}
	if c := diffItem(&prev, toListing(platformID, item, now), now); c.kind != changeNone {
		t.Fatalf("expected cleaned refs to compare equal, got %v", c.kind)
	}
	item.ExternalListingRefs = []string{"r2", "r1"}
	if c := diffItem(&prev, toListing(platformID, item, now), now); c.kind != changeDirty {
		t.Fatalf("expected reordered refs to be dirty")
	}
}

func TestDiffItemNewListingWithoutPrice(t *testing.T) {
	now := time.Now().UTC()
	c := diffItem(nil, toListing(uuid.New(), ScrapedItem{ID: 9, SKU: "A", Title: "A", Stock: -1}, now), now)
	if c.kind != changeNew {
		t.Fatalf("expected new")
	}
	if len(c.prices) != 0 {
		t.Fatalf("expected no price row without a price")
	}
	if len(c.inventory) != 1 || c.inventory[0].ChangeType != enums.InventoryChangeInitial || c.inventory[0].Stock != -1 {
		t.Fatalf("unexpected inventory rows %+v", c.inventory)
	}
	if len(c.customFields) != 1 {
		t.Fatalf("expected only is_lowest to be recorded, got %d", len(c.customFields))
	}
}

func TestToListingRoundsPriceToCents(t *testing.T) {
	now := time.Now().UTC()
	platformID := uuid.New()
	price := decimal.RequireFromString("999.994")
	item := ScrapedItem{ID: 3, SKU: "A", Title: "A", Price: &price, Stock: 1}

	c := diffItem(nil, toListing(platformID, item, now), now)
	if c.kind != changeNew {
		t.Fatalf("expected new")
	}
	if len(c.prices) != 1 || !c.prices[0].Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("expected one price row at 999.99, got %+v", c.prices)
	}

	// what the numeric(12,2) column hands back on the next run
	stored := c.row
	stored.CurrentPrice = decimal.NewNullDecimal(decimal.RequireFromString("999.99"))
	if next := diffItem(&stored, toListing(platformID, item, now), now); next.kind != changeNone {
		t.Fatalf("expected unchanged sub-cent price to be clean, got %v", next.kind)
	}
}
