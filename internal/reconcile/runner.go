package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/resellsync/pkg/db/models"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

// PlatformRegistry resolves the platform row a source writes into.
type PlatformRegistry interface {
	StatusRecorder
	GetOrCreate(ctx context.Context, name, baseURL string) (*models.Platform, error)
}

// Runner fetches a snapshot from a source and reconciles it.
type Runner struct {
	logg      *logger.Logger
	engine    *Engine
	platforms PlatformRegistry
}

// NewRunner wires a runner around an engine.
func NewRunner(logg *logger.Logger, engine *Engine, platforms PlatformRegistry) (*Runner, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine required")
	}
	if platforms == nil {
		return nil, fmt.Errorf("platform registry required")
	}
	return &Runner{logg: logg, engine: engine, platforms: platforms}, nil
}

// Sync performs one fetch-and-reconcile pass for src.
func (r *Runner) Sync(ctx context.Context, src SnapshotSource) (SyncStats, error) {
	platform, err := r.platforms.GetOrCreate(ctx, src.Name(), src.BaseURL())
	if err != nil {
		return SyncStats{}, err
	}
	ctx = r.logg.WithPlatform(ctx, platform.ID.String(), platform.Name)

	if err := r.platforms.MarkRunning(ctx, platform.ID); err != nil {
		return SyncStats{}, err
	}
	items, err := src.Fetch(ctx)
	if err != nil {
		fetchErr := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch snapshot")
		if markErr := r.platforms.MarkFinished(context.WithoutCancel(ctx), platform.ID, enums.SyncStatusFailed); markErr != nil {
			return SyncStats{}, multierr.Combine(fetchErr, markErr)
		}
		return SyncStats{}, fetchErr
	}
	r.logg.Info(r.logg.WithField(ctx, "items", len(items)), "snapshot fetched")
	return r.engine.Reconcile(ctx, platform.ID, items)
}
