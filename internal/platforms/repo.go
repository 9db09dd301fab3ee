package platforms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
)

// Repository persists platform rows and their sync status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByName(ctx context.Context, name string) (*models.Platform, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Platform, error)
	Create(ctx context.Context, platform *models.Platform) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SyncStatus, start, end *time.Time) error
	CountListings(ctx context.Context, id uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a platforms repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByName(ctx context.Context, name string) (*models.Platform, error) {
	var platform models.Platform
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&platform).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	var platform models.Platform
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&platform).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *repositoryImpl) Create(ctx context.Context, platform *models.Platform) error {
	return r.db.WithContext(ctx).Create(platform).Error
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SyncStatus, start, end *time.Time) error {
	updates := map[string]any{"sync_status": status}
	if start != nil {
		updates["last_sync_start"] = *start
	}
	if end != nil {
		updates["last_sync_end"] = *end
	}
	result := r.db.WithContext(ctx).Model(&models.Platform{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) CountListings(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("platform_id = ?", id).Count(&count).Error
	return count, err
}
