package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

// Platform is a marketplace the worker mirrors. Rows are created on first sight and never deleted.
type Platform struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null;uniqueIndex:uq_platforms_name"`
	BaseURL       *string          `gorm:"column:base_url"`
	SyncStatus    enums.SyncStatus `gorm:"column:sync_status;type:text;not null"`
	LastSyncStart *time.Time       `gorm:"column:last_sync_start"`
	LastSyncEnd   *time.Time       `gorm:"column:last_sync_end"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (Platform) TableName() string { return "platforms" }

func (p *Platform) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.SyncStatus == "" {
		p.SyncStatus = enums.SyncStatusIdle
	}
	return nil
}
