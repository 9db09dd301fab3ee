package listings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/db/dbtest"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	dbtypes "github.com/angelmondragon/resellsync/pkg/db/types"
	"github.com/angelmondragon/resellsync/pkg/enums"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func seedPlatform(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	platform := models.Platform{Name: "SourceX"}
	require.NoError(t, conn.Create(&platform).Error)
	return platform.ID
}

func listingFixture(id int64, platformID uuid.UUID, sku, size string) models.Listing {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Listing{
		ID:                  id,
		PlatformID:          platformID,
		ProductSKU:          sku,
		ProductName:         "Dunk Low",
		Size:                strPtr(size),
		CurrentPrice:        decimal.NewNullDecimal(decimal.NewFromInt(11000)),
		CurrentStock:        intPtr(1),
		PayoutPrice:         intPtr(10000),
		CommissionBPS:       intPtr(1400),
		ExternalListingRefs: dbtypes.ListingRefs{"UGxhdGZvcm1MaXN0aW5nOjE="},
		LastEventAt:         now,
		UpdatedAt:           now,
	}
}

func TestUpsertBatchPreservesUserOwnedColumns(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	platformID := seedPlatform(t, conn)

	row := listingFixture(1, platformID, "DD1391", "9")
	require.NoError(t, repo.UpsertBatch(ctx, []models.Listing{row}))
	require.NoError(t, repo.UpdateSettings(ctx, 1, map[string]any{
		"auto_reprice_enabled": true,
		"stop_loss_price":      9000,
	}))

	row.CurrentPrice = decimal.NewNullDecimal(decimal.NewFromInt(10500))
	row.ProductName = "Dunk Low Panda"
	require.NoError(t, repo.UpsertBatch(ctx, []models.Listing{row}))

	got, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Dunk Low Panda", got.ProductName)
	require.True(t, got.CurrentPrice.Decimal.Equal(decimal.NewFromInt(10500)))
	require.True(t, got.AutoRepriceEnabled)
	require.NotNil(t, got.StopLossPrice)
	require.Equal(t, 9000, *got.StopLossPrice)
	require.Equal(t, dbtypes.ListingRefs{"UGxhdGZvcm1MaXN0aW5nOjE="}, got.ExternalListingRefs)
}

func TestRepriceEligibilityAndSiblings(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	platformID := seedPlatform(t, conn)

	a := listingFixture(1, platformID, "DD1391", "9")
	b := listingFixture(2, platformID, "DD1391", "9")
	otherSize := listingFixture(3, platformID, "DD1391", "10")
	noStock := listingFixture(4, platformID, "DD1391", "9")
	noStock.CurrentStock = intPtr(0)
	noRefs := listingFixture(5, platformID, "DD1391", "9")
	noRefs.ExternalListingRefs = dbtypes.ListingRefs{}
	disabled := listingFixture(6, platformID, "DD1391", "9")
	require.NoError(t, repo.UpsertBatch(ctx, []models.Listing{a, b, otherSize, noStock, noRefs, disabled}))
	for _, id := range []int64{1, 2, 3, 4, 5} {
		require.NoError(t, repo.UpdateSettings(ctx, id, map[string]any{"auto_reprice_enabled": true}))
	}

	eligible, err := repo.ListRepriceEligible(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{eligible[0].ID, eligible[1].ID, eligible[2].ID})

	siblings, err := repo.ListEligibleSiblings(ctx, eligible[0])
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	require.Equal(t, int64(2), siblings[0].ID)
}

func TestUpdatePayoutUnknownListing(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdatePayout(context.Background(), 99, 100, 114, time.Now().UTC())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestServicePaginatesListingsAndHistory(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	history := NewHistoryRepository(conn)
	ctx := context.Background()
	platformID := seedPlatform(t, conn)

	rows := []models.Listing{}
	for i := int64(1); i <= 3; i++ {
		rows = append(rows, listingFixture(i, platformID, "SKU", "9"))
	}
	require.NoError(t, repo.UpsertBatch(ctx, rows))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []models.InventoryHistoryEntry{}
	for i := 0; i < 3; i++ {
		entries = append(entries, models.InventoryHistoryEntry{
			ListingID:  1,
			Stock:      3 - i,
			ChangeType: enums.InventoryChangeSold,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, history.InsertInventory(ctx, entries))

	svc, err := NewService(repo, history)
	require.NoError(t, err)

	page, err := svc.List(ctx, ListParams{PlatformID: &platformID, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(ctx, ListParams{Params: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Listings, 1)
	require.Equal(t, int64(3), next.Listings[0].ID)
	require.Empty(t, next.NextCursor)

	inv, cursor, err := svc.InventoryHistory(ctx, HistoryParams{ListingID: 1, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, inv, 2)
	require.Equal(t, 1, inv[0].Stock)
	require.NotEmpty(t, cursor)

	rest, cursor, err := svc.InventoryHistory(ctx, HistoryParams{ListingID: 1, Params: pagination.Params{Limit: 2, Cursor: cursor}})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, 3, rest[0].Stock)
	require.Empty(t, cursor)

	_, err = svc.Get(ctx, 42)
	require.Error(t, err)
}
