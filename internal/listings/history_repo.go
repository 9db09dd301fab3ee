package listings

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

// HistoryRepository appends to and reads the three change ledgers.
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	InsertPrice(ctx context.Context, rows []models.PriceHistoryEntry) error
	InsertInventory(ctx context.Context, rows []models.InventoryHistoryEntry) error
	InsertCustomFields(ctx context.Context, rows []models.CustomFieldHistoryEntry) error
	ListPrice(ctx context.Context, params historyParams) ([]models.PriceHistoryEntry, error)
	ListInventory(ctx context.Context, params historyParams) ([]models.InventoryHistoryEntry, error)
	ListCustomFields(ctx context.Context, params historyParams) ([]models.CustomFieldHistoryEntry, error)
}

type historyRepositoryImpl struct {
	db *gorm.DB
}

// NewHistoryRepository returns a ledger repository bound to the provided database.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepositoryImpl{db: db}
}

type historyParams struct {
	ListingID int64
	FieldName string
	Cursor    *pagination.Cursor
	Limit     int
}

func (r *historyRepositoryImpl) WithTx(tx *gorm.DB) HistoryRepository {
	if tx == nil {
		return r
	}
	return &historyRepositoryImpl{db: tx}
}

func (r *historyRepositoryImpl) InsertPrice(ctx context.Context, rows []models.PriceHistoryEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, config.MaxSyncChunkSize).Error
}

func (r *historyRepositoryImpl) InsertInventory(ctx context.Context, rows []models.InventoryHistoryEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, config.MaxSyncChunkSize).Error
}

func (r *historyRepositoryImpl) InsertCustomFields(ctx context.Context, rows []models.CustomFieldHistoryEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, config.MaxSyncChunkSize).Error
}

func (r *historyRepositoryImpl) timeline(ctx context.Context, model any, params historyParams) *gorm.DB {
	query := r.db.WithContext(ctx).Model(model).Where("listing_id = ?", params.ListingID)
	if params.Cursor != nil {
		query = query.Where("(recorded_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}
	return query.Order("recorded_at DESC, id DESC").Limit(params.Limit)
}

func (r *historyRepositoryImpl) ListPrice(ctx context.Context, params historyParams) ([]models.PriceHistoryEntry, error) {
	var rows []models.PriceHistoryEntry
	err := r.timeline(ctx, &models.PriceHistoryEntry{}, params).Find(&rows).Error
	return rows, err
}

func (r *historyRepositoryImpl) ListInventory(ctx context.Context, params historyParams) ([]models.InventoryHistoryEntry, error) {
	var rows []models.InventoryHistoryEntry
	err := r.timeline(ctx, &models.InventoryHistoryEntry{}, params).Find(&rows).Error
	return rows, err
}

func (r *historyRepositoryImpl) ListCustomFields(ctx context.Context, params historyParams) ([]models.CustomFieldHistoryEntry, error) {
	query := r.timeline(ctx, &models.CustomFieldHistoryEntry{}, params)
	if params.FieldName != "" {
		query = query.Where("field_name = ?", params.FieldName)
	}
	var rows []models.CustomFieldHistoryEntry
	err := query.Find(&rows).Error
	return rows, err
}
