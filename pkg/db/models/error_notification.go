package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellsync/pkg/enums"
)

// ErrorNotification tracks the last alert sent per (listing, error kind).
type ErrorNotification struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ListingID      int64           `gorm:"column:listing_id;not null;uniqueIndex:uq_error_notifications_listing_kind,priority:1"`
	ErrorKind      enums.ErrorKind `gorm:"column:error_kind;type:text;not null;uniqueIndex:uq_error_notifications_listing_kind,priority:2"`
	LastMessage    string          `gorm:"column:last_message;not null"`
	LastNotifiedAt time.Time       `gorm:"column:last_notified_at;not null;index:idx_error_notifications_last_notified_at"`
}

func (ErrorNotification) TableName() string { return "error_notifications" }

func (n *ErrorNotification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
