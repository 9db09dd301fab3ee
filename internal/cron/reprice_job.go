package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/resellsync/internal/repricing"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) (repricing.CycleStats, error)
}

type RepriceJobParams struct {
	Logger *logger.Logger
	Engine cycleRunner
}

// NewRepriceJob runs one repricing cycle per run.
func NewRepriceJob(params RepriceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("repricing engine required")
	}
	return &repriceJob{logg: params.Logger, engine: params.Engine}, nil
}

type repriceJob struct {
	logg   *logger.Logger
	engine cycleRunner
}

func (j *repriceJob) Name() string { return "reprice" }

func (j *repriceJob) Run(ctx context.Context) error {
	stats, err := j.engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("repricing cycle: %w", err)
	}
	if stats.Errors > 0 {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"errors":    stats.Errors,
			"processed": stats.Processed,
		}), "repricing cycle had listing errors")
	}
	return nil
}
