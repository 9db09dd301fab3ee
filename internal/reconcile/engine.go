package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/internal/listingcache"
	"github.com/angelmondragon/resellsync/internal/listings"
	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
	"github.com/angelmondragon/resellsync/pkg/metrics"
)

const defaultPartialFetchRatio = 0.9

// StatusRecorder tracks the platform sync lifecycle.
type StatusRecorder interface {
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkFinished(ctx context.Context, id uuid.UUID, status enums.SyncStatus) error
	CountListings(ctx context.Context, id uuid.UUID) (int64, error)
}

// EngineParams wire the reconciliation engine.
type EngineParams struct {
	Logger            *logger.Logger
	DB                db.TxRunner
	Listings          listings.Repository
	History           listings.HistoryRepository
	Cache             *listingcache.Cache
	Status            StatusRecorder
	Metrics           *metrics.SyncMetrics
	ChunkSize         int
	PartialFetchRatio float64
}

// Engine turns a platform snapshot into persisted current state plus ledger rows.
type Engine struct {
	logg         *logger.Logger
	db           db.TxRunner
	listings     listings.Repository
	history      listings.HistoryRepository
	cache        *listingcache.Cache
	status       StatusRecorder
	metrics      *metrics.SyncMetrics
	validate     *validator.Validate
	chunkSize    int
	partialRatio float64
	now          func() time.Time
}

// NewEngine validates the wiring and applies defaults.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Listings == nil || params.History == nil {
		return nil, fmt.Errorf("listing repositories required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("listing cache required")
	}
	if params.Status == nil {
		return nil, fmt.Errorf("status recorder required")
	}
	chunkSize := params.ChunkSize
	if chunkSize <= 0 || chunkSize > config.MaxSyncChunkSize {
		chunkSize = config.MaxSyncChunkSize
	}
	ratio := params.PartialFetchRatio
	if ratio <= 0 || ratio > 1 {
		ratio = defaultPartialFetchRatio
	}
	return &Engine{
		logg:         params.Logger,
		db:           params.DB,
		listings:     params.Listings,
		history:      params.History,
		cache:        params.Cache,
		status:       params.Status,
		metrics:      params.Metrics,
		validate:     newValidator(),
		chunkSize:    chunkSize,
		partialRatio: ratio,
		now:          time.Now,
	}, nil
}

// Reconcile diffs items against the persisted state of platformID and writes
// new and dirty listings in independently committed chunks. Chunk failures are
// counted in the stats and mark the platform failed; they are not returned as errors.
func (e *Engine) Reconcile(ctx context.Context, platformID uuid.UUID, items []ScrapedItem) (SyncStats, error) {
	start := e.now()
	stats := SyncStats{Total: len(items)}
	ctx = e.logg.WithField(ctx, "platform_id", platformID.String())

	if err := e.status.MarkRunning(ctx, platformID); err != nil {
		return stats, err
	}

	stats, runErr := e.run(ctx, platformID, items, stats)
	stats.Duration = e.now().Sub(start)

	finalStatus := enums.SyncStatusIdle
	if runErr != nil || stats.ChunksFailed > 0 {
		finalStatus = enums.SyncStatusFailed
	}
	if err := e.status.MarkFinished(context.WithoutCancel(ctx), platformID, finalStatus); err != nil {
		runErr = multierr.Combine(runErr, err)
	}

	e.record(platformID, stats)
	logCtx := e.logg.WithFields(ctx, stats.Fields())
	logCtx = e.logg.WithField(logCtx, "sync_status", finalStatus)
	if runErr != nil {
		e.logg.Error(logCtx, "reconciliation failed", runErr)
		return stats, runErr
	}
	if stats.Warning != "" {
		e.logg.Warn(logCtx, stats.Warning)
	}
	e.logg.Info(logCtx, "reconciliation complete")
	return stats, nil
}

func (e *Engine) run(ctx context.Context, platformID uuid.UUID, items []ScrapedItem, stats SyncStats) (SyncStats, error) {
	prevCount, err := e.status.CountListings(ctx, platformID)
	if err != nil {
		return stats, err
	}
	stats.Warning = partialFetchWarning(prevCount, len(items), e.partialRatio)
	stats.PartialFetch = stats.Warning != ""

	if _, err := e.cache.Warm(ctx, platformID); err != nil {
		return stats, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "warm listing cache")
	}

	now := e.now().UTC()
	pending := make([]change, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if err := e.validate.Struct(item); err != nil {
			stats.Invalid++
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{"listing_id": item.ID, "reason": err.Error()}), "skipping invalid snapshot item")
			continue
		}
		if _, dup := seen[item.ID]; dup {
			stats.Invalid++
			e.logg.Warn(e.logg.WithListingID(ctx, item.ID), "skipping duplicate snapshot item")
			continue
		}
		seen[item.ID] = struct{}{}

		next := toListing(platformID, item, now)
		var prev *models.Listing
		if cached, ok := e.lookup(platformID, item); ok {
			prev = &cached
		}
		c := diffItem(prev, next, now)
		if c.kind == changeNone {
			stats.Unchanged++
			continue
		}
		pending = append(pending, c)
	}

	for offset := 0; offset < len(pending); offset += e.chunkSize {
		end := min(offset+e.chunkSize, len(pending))
		chunk := pending[offset:end]
		if err := e.writeChunk(ctx, chunk); err != nil {
			stats.ChunksFailed++
			logCtx := e.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
			logCtx = e.logg.WithFields(logCtx, map[string]any{"chunk_offset": offset, "chunk_rows": len(chunk)})
			e.logg.Error(logCtx, "reconciliation chunk failed", err)
			continue
		}
		stats.ChunksOK++
		for _, c := range chunk {
			if c.kind == changeNew {
				stats.Inserted++
			} else {
				stats.Updated++
			}
			stats.PriceRows += len(c.prices)
			stats.InventoryRows += len(c.inventory)
			stats.CustomFieldRows += len(c.customFields)
		}
	}
	if stats.ChunksFailed > 0 {
		stats.Warning = joinWarning(stats.Warning, fmt.Sprintf("%d of %d chunks failed", stats.ChunksFailed, stats.ChunksFailed+stats.ChunksOK))
	}

	if _, err := e.cache.Warm(ctx, platformID); err != nil {
		return stats, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-warm listing cache")
	}
	return stats, nil
}

// lookup finds the previous state by identity key, falling back to the listing id
// when several marketplace units share one sku and variant.
func (e *Engine) lookup(platformID uuid.UUID, item ScrapedItem) (models.Listing, bool) {
	if cached, ok := e.cache.Lookup(listingcache.Key(platformID, item.SKU, item.VariantID)); ok && cached.ID == item.ID {
		return cached, true
	}
	return e.cache.LookupID(item.ID)
}

func (e *Engine) writeChunk(ctx context.Context, chunk []change) error {
	rows := make([]models.Listing, 0, len(chunk))
	var prices []models.PriceHistoryEntry
	var inventory []models.InventoryHistoryEntry
	var customFields []models.CustomFieldHistoryEntry
	for _, c := range chunk {
		rows = append(rows, c.row)
		prices = append(prices, c.prices...)
		inventory = append(inventory, c.inventory...)
		customFields = append(customFields, c.customFields...)
	}
	return e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.listings.WithTx(tx).UpsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("upsert listings: %w", err)
		}
		history := e.history.WithTx(tx)
		if err := history.InsertPrice(ctx, prices); err != nil {
			return fmt.Errorf("insert price history: %w", err)
		}
		if err := history.InsertInventory(ctx, inventory); err != nil {
			return fmt.Errorf("insert inventory history: %w", err)
		}
		if err := history.InsertCustomFields(ctx, customFields); err != nil {
			return fmt.Errorf("insert custom field history: %w", err)
		}
		return nil
	})
}

func (e *Engine) record(platformID uuid.UUID, stats SyncStats) {
	if e.metrics == nil {
		return
	}
	label := platformID.String()
	e.metrics.AddItems(label, "inserted", stats.Inserted)
	e.metrics.AddItems(label, "updated", stats.Updated)
	e.metrics.AddItems(label, "unchanged", stats.Unchanged)
	e.metrics.AddItems(label, "invalid", stats.Invalid)
	e.metrics.AddChunkFailures(label, stats.ChunksFailed)
	if stats.PartialFetch {
		e.metrics.IncPartialFetch(label)
	}
	e.metrics.ObserveDuration(label, stats.Duration)
}

func joinWarning(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
