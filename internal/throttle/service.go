// Package throttle gates outbound error alerts to one per listing and error kind
// within a rolling window.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

const defaultWindow = 24 * time.Hour

// ServiceParams configure the throttle.
type ServiceParams struct {
	Logger     *logger.Logger
	Repository Repository
	Window     time.Duration
	Now        func() time.Time
}

// Service implements the notification throttle.
type Service struct {
	logg   *logger.Logger
	repo   Repository
	window time.Duration
	now    func() time.Time
}

// NewService builds a throttle backed by the error_notifications table.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("throttle repository required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultWindow
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{logg: params.Logger, repo: params.Repository, window: window, now: now}, nil
}

// Window returns the suppression window.
func (s *Service) Window() time.Duration { return s.window }

// ShouldNotify reports whether no alert for (listingID, kind) was sent within the window.
func (s *Service) ShouldNotify(ctx context.Context, listingID int64, kind enums.ErrorKind) (bool, error) {
	if !kind.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown error kind %q", kind))
	}
	record, err := s.repo.Find(ctx, listingID, kind)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load error notification")
	}
	if record == nil {
		return true, nil
	}
	return !record.LastNotifiedAt.After(s.now().UTC().Add(-s.window)), nil
}

// RecordNotified upserts the record for (listingID, kind), restarting the window.
func (s *Service) RecordNotified(ctx context.Context, listingID int64, kind enums.ErrorKind, message string) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown error kind %q", kind))
	}
	record := &models.ErrorNotification{
		ListingID:      listingID,
		ErrorKind:      kind,
		LastMessage:    message,
		LastNotifiedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record error notification")
	}
	return nil
}

// Clear drops every throttle record for the listing so the next error is reported immediately.
func (s *Service) Clear(ctx context.Context, listingID int64) error {
	deleted, err := s.repo.DeleteByListing(ctx, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear error notifications")
	}
	if deleted > 0 {
		s.logg.Info(s.logg.WithFields(s.logg.WithListingID(ctx, listingID), map[string]any{"rows_deleted": deleted}), "error notification throttle cleared")
	}
	return nil
}

// PurgeExpired deletes records whose window closed before cutoff.
func (s *Service) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteNotifiedBefore(ctx, cutoff.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge error notifications")
	}
	return deleted, nil
}
