package repricing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/pagination"
)

// MutationRepository appends to and reads the price mutation audit log.
type MutationRepository interface {
	WithTx(tx *gorm.DB) MutationRepository
	Create(ctx context.Context, mutation *models.PriceMutation) error
	Latest(ctx context.Context, listingID int64) (*models.PriceMutation, error)
	ListByListing(ctx context.Context, listingID int64, cursor *pagination.Cursor, limit int) ([]models.PriceMutation, error)
}

type mutationRepositoryImpl struct {
	db *gorm.DB
}

// NewMutationRepository returns a mutation repository bound to the provided database.
func NewMutationRepository(db *gorm.DB) MutationRepository {
	return &mutationRepositoryImpl{db: db}
}

func (r *mutationRepositoryImpl) WithTx(tx *gorm.DB) MutationRepository {
	if tx == nil {
		return r
	}
	return &mutationRepositoryImpl{db: tx}
}

func (r *mutationRepositoryImpl) Create(ctx context.Context, mutation *models.PriceMutation) error {
	return r.db.WithContext(ctx).Create(mutation).Error
}

func (r *mutationRepositoryImpl) Latest(ctx context.Context, listingID int64) (*models.PriceMutation, error) {
	var mutation models.PriceMutation
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC, id DESC").
		First(&mutation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mutation, nil
}

func (r *mutationRepositoryImpl) ListByListing(ctx context.Context, listingID int64, cursor *pagination.Cursor, limit int) ([]models.PriceMutation, error) {
	query := r.db.WithContext(ctx).Model(&models.PriceMutation{}).Where("listing_id = ?", listingID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.PriceMutation
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
