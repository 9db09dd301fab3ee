package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/resellsync/internal/reconcile"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

type snapshotSyncer interface {
	Sync(ctx context.Context, src reconcile.SnapshotSource) (reconcile.SyncStats, error)
}

type SyncJobParams struct {
	Logger  *logger.Logger
	Runner  snapshotSyncer
	Sources []reconcile.SnapshotSource
}

// NewSyncJob reconciles every configured source once per run.
func NewSyncJob(params SyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("sync runner required")
	}
	if len(params.Sources) == 0 {
		return nil, fmt.Errorf("at least one snapshot source required")
	}
	return &syncJob{logg: params.Logger, runner: params.Runner, sources: params.Sources}, nil
}

type syncJob struct {
	logg    *logger.Logger
	runner  snapshotSyncer
	sources []reconcile.SnapshotSource
}

func (j *syncJob) Name() string { return "sync" }

// Run syncs sources in order; one failing source does not stop the others.
func (j *syncJob) Run(ctx context.Context) error {
	var errs error
	for _, src := range j.sources {
		srcCtx := j.logg.WithField(ctx, "source", src.Name())
		stats, err := j.runner.Sync(srcCtx, src)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync %s: %w", src.Name(), err))
			continue
		}
		if stats.ChunksFailed > 0 {
			j.logg.Warn(j.logg.WithFields(srcCtx, stats.Fields()), "sync finished with failed chunks")
		}
	}
	return errs
}
