package listings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/resellsync/pkg/db/models"
)

// Repository persists listing current state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id int64) (*models.Listing, error)
	ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]models.Listing, error)
	ListPage(ctx context.Context, params listPageParams) ([]models.Listing, error)
	UpsertBatch(ctx context.Context, rows []models.Listing) error
	ListRepriceEligible(ctx context.Context) ([]models.Listing, error)
	ListEligibleSiblings(ctx context.Context, listing models.Listing) ([]models.Listing, error)
	UpdatePayout(ctx context.Context, id int64, payout, projected int, now time.Time) error
	UpdateSettings(ctx context.Context, id int64, updates map[string]any) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a listings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listPageParams struct {
	PlatformID *uuid.UUID
	AfterID    *int64
	Limit      int
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repositoryImpl) ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("platform_id = ?", platformID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListPage(ctx context.Context, params listPageParams) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).Model(&models.Listing{})
	if params.PlatformID != nil {
		query = query.Where("platform_id = ?", *params.PlatformID)
	}
	if params.AfterID != nil {
		query = query.Where("id > ?", *params.AfterID)
	}
	var rows []models.Listing
	err := query.Order("id ASC").Limit(params.Limit).Find(&rows).Error
	return rows, err
}

// UpsertBatch inserts or overwrites rows by primary key. Only reconciliation-owned
// columns are overwritten on conflict.
func (r *repositoryImpl) UpsertBatch(ctx context.Context, rows []models.Listing) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(models.SyncColumns),
		}).
		Create(&rows).Error
}

func (r *repositoryImpl) eligible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("auto_reprice_enabled = ?", true).
		Where("payout_price IS NOT NULL").
		Where("current_stock > ?", 0).
		Where("external_listing_refs <> ?", "[]")
}

func (r *repositoryImpl) ListRepriceEligible(ctx context.Context) ([]models.Listing, error) {
	var rows []models.Listing
	if err := r.eligible(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return filterEligible(rows), nil
}

func (r *repositoryImpl) ListEligibleSiblings(ctx context.Context, listing models.Listing) ([]models.Listing, error) {
	query := r.eligible(ctx).
		Where("platform_id = ?", listing.PlatformID).
		Where("product_sku = ?", listing.ProductSKU).
		Where("id <> ?", listing.ID)
	if listing.Size == nil {
		query = query.Where("size IS NULL")
	} else {
		query = query.Where("size = ?", *listing.Size)
	}
	var rows []models.Listing
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return filterEligible(rows), nil
}

func (r *repositoryImpl) UpdatePayout(ctx context.Context, id int64, payout, projected int, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payout_price":  payout,
			"current_price": decimal.NewNullDecimal(decimal.NewFromInt(int64(projected))),
			"updated_at":    now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) UpdateSettings(ctx context.Context, id int64, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsRepriceEligible mirrors the SQL eligibility filter.
func IsRepriceEligible(l models.Listing) bool {
	return l.AutoRepriceEnabled &&
		l.PayoutPrice != nil &&
		l.CurrentStock != nil && *l.CurrentStock > 0 &&
		len(l.ExternalListingRefs.Clean()) > 0
}

func filterEligible(rows []models.Listing) []models.Listing {
	out := rows[:0]
	for _, row := range rows {
		if IsRepriceEligible(row) {
			out = append(out, row)
		}
	}
	return out
}
