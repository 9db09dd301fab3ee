// Package listingcache holds the per-platform index of persisted listing state
// used by reconciliation to diff a snapshot against the last write.
package listingcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellsync/pkg/db/models"
)

// Loader reads every current-state row for a platform.
type Loader interface {
	ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]models.Listing, error)
}

// Key builds the platformId:sku:variantId lookup key. A null variant maps to "".
func Key(platformID uuid.UUID, sku string, variantID *string) string {
	variant := ""
	if variantID != nil {
		variant = *variantID
	}
	return fmt.Sprintf("%s:%s:%s", platformID, sku, variant)
}

// Cache is safe for concurrent readers; Warm replaces the whole index atomically.
type Cache struct {
	loader Loader

	mu         sync.RWMutex
	platformID uuid.UUID
	byKey      map[string]models.Listing
	byID       map[int64]models.Listing
}

// New builds an empty cache backed by loader.
func New(loader Loader) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("listing loader required")
	}
	return &Cache{
		loader: loader,
		byKey:  map[string]models.Listing{},
		byID:   map[int64]models.Listing{},
	}, nil
}

// Warm reloads the index for platformID from storage and returns a copy keyed by Key.
func (c *Cache) Warm(ctx context.Context, platformID uuid.UUID) (map[string]models.Listing, error) {
	rows, err := c.loader.ListByPlatform(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("warm listing cache: %w", err)
	}
	byKey := make(map[string]models.Listing, len(rows))
	byID := make(map[int64]models.Listing, len(rows))
	for _, row := range rows {
		// rows arrive in ascending id order; the lowest id keeps the shared key
		key := Key(row.PlatformID, row.ProductSKU, row.VariantID)
		if _, exists := byKey[key]; !exists {
			byKey[key] = row
		}
		byID[row.ID] = row
	}

	c.mu.Lock()
	c.platformID = platformID
	c.byKey = byKey
	c.byID = byID
	c.mu.Unlock()

	out := make(map[string]models.Listing, len(byKey))
	for k, v := range byKey {
		out[k] = v
	}
	return out, nil
}

// Lookup returns the snapshot stored under key as of the last warm.
func (c *Cache) Lookup(key string) (models.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.byKey[key]
	return row, ok
}

// LookupID returns the snapshot for a listing id as of the last warm.
func (c *Cache) LookupID(id int64) (models.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.byID[id]
	return row, ok
}

// Len reports how many listings were loaded by the last warm.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// PlatformID returns the platform of the last warm.
func (c *Cache) PlatformID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.platformID
}
