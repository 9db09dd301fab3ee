package listingcache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellsync/pkg/db/models"
)

type fakeLoader struct {
	rows  []models.Listing
	err   error
	calls int
}

func (f *fakeLoader) ListByPlatform(context.Context, uuid.UUID) ([]models.Listing, error) {
	f.calls++
	return f.rows, f.err
}

func strPtr(v string) *string { return &v }

func TestKeyFormatsNullVariant(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	if got := Key(id, "DD1391", nil); got != "11111111-1111-1111-1111-111111111111:DD1391:" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := Key(id, "DD1391", strPtr("42")); got != "11111111-1111-1111-1111-111111111111:DD1391:42" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestWarmIndexesByKeyAndID(t *testing.T) {
	platformID := uuid.New()
	loader := &fakeLoader{rows: []models.Listing{
		{ID: 1, PlatformID: platformID, ProductSKU: "A", VariantID: strPtr("v1")},
		{ID: 2, PlatformID: platformID, ProductSKU: "A", VariantID: strPtr("v1")},
		{ID: 3, PlatformID: platformID, ProductSKU: "B"},
	}}
	cache, err := New(loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snapshot, err := cache.Warm(context.Background(), platformID)
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if len(snapshot) != 2 || cache.Len() != 3 {
		t.Fatalf("expected 2 keys and 3 ids, got %d and %d", len(snapshot), cache.Len())
	}
	row, ok := cache.Lookup(Key(platformID, "A", strPtr("v1")))
	if !ok || row.ID != 1 {
		t.Fatalf("expected lowest id for shared key, got %+v %v", row, ok)
	}
	if row, ok := cache.LookupID(2); !ok || row.ID != 2 {
		t.Fatalf("expected id lookup to find 2")
	}
	if _, ok := cache.Lookup(Key(platformID, "C", nil)); ok {
		t.Fatal("unexpected hit")
	}
	if cache.PlatformID() != platformID {
		t.Fatal("platform id not recorded")
	}
}

func TestWarmReplacesPreviousIndex(t *testing.T) {
	platformID := uuid.New()
	loader := &fakeLoader{rows: []models.Listing{{ID: 1, PlatformID: platformID, ProductSKU: "A"}}}
	cache, _ := New(loader)
	if _, err := cache.Warm(context.Background(), platformID); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	loader.rows = nil
	if _, err := cache.Warm(context.Background(), platformID); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if _, ok := cache.LookupID(1); ok {
		t.Fatal("expected stale row to be dropped")
	}
}

func TestWarmPropagatesError(t *testing.T) {
	cache, _ := New(&fakeLoader{err: errors.New("boom")})
	if _, err := cache.Warm(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
