package throttle

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
)

// Repository persists error notification records.
type Repository interface {
	Find(ctx context.Context, listingID int64, kind enums.ErrorKind) (*models.ErrorNotification, error)
	Upsert(ctx context.Context, record *models.ErrorNotification) error
	DeleteByListing(ctx context.Context, listingID int64) (int64, error)
	DeleteNotifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a throttle repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Find(ctx context.Context, listingID int64, kind enums.ErrorKind) (*models.ErrorNotification, error) {
	var record models.ErrorNotification
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND error_kind = ?", listingID, kind).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, record *models.ErrorNotification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}, {Name: "error_kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message", "last_notified_at"}),
		}).
		Create(record).Error
}

func (r *repositoryImpl) DeleteByListing(ctx context.Context, listingID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Delete(&models.ErrorNotification{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteNotifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("last_notified_at < ?", cutoff).Delete(&models.ErrorNotification{})
	return result.RowsAffected, result.Error
}
