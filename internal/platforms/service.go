package platforms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellsync/pkg/db"
	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

// ServiceParams configure the platform status recorder.
type ServiceParams struct {
	Logger     *logger.Logger
	Repository Repository
	Now        func() time.Time
}

// Service records platform lifecycle and sync status transitions.
type Service struct {
	logg *logger.Logger
	repo Repository
	now  func() time.Time
}

// NewService builds the platform status recorder.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("platform repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{logg: params.Logger, repo: params.Repository, now: now}, nil
}

// GetOrCreate returns the platform named name, creating it idle on first sight.
func (s *Service) GetOrCreate(ctx context.Context, name, baseURL string) (*models.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform name is required")
	}
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform")
	}
	if existing != nil {
		return existing, nil
	}

	platform := &models.Platform{Name: name, SyncStatus: enums.SyncStatusIdle}
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		platform.BaseURL = &trimmed
	}
	if err := s.repo.Create(ctx, platform); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost a create race with another worker
			existing, findErr := s.repo.FindByName(ctx, name)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create platform")
	}

	logCtx := s.logg.WithPlatform(ctx, platform.ID.String(), platform.Name)
	s.logg.Info(logCtx, "platform registered")
	return platform, nil
}

// MarkRunning flips the platform to running and stamps last_sync_start.
func (s *Service) MarkRunning(ctx context.Context, id uuid.UUID) error {
	start := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, enums.SyncStatusRunning, &start, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark platform running")
	}
	return nil
}

// MarkFinished records the terminal status (idle or failed) and last_sync_end.
func (s *Service) MarkFinished(ctx context.Context, id uuid.UUID, status enums.SyncStatus) error {
	if status != enums.SyncStatusIdle && status != enums.SyncStatusFailed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot finish sync with status %q", status))
	}
	end := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, nil, &end); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark platform finished")
	}
	return nil
}

// CountListings returns the number of persisted listings for the platform.
func (s *Service) CountListings(ctx context.Context, id uuid.UUID) (int64, error) {
	count, err := s.repo.CountListings(ctx, id)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count platform listings")
	}
	return count, nil
}

// Get returns the platform by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Platform, error) {
	platform, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform")
	}
	if platform == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform not found")
	}
	return platform, nil
}
