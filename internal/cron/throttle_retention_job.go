package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/resellsync/pkg/logger"
)

type throttlePurger interface {
	Window() time.Duration
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type ThrottleRetentionJobParams struct {
	Logger   *logger.Logger
	Throttle throttlePurger
}

// NewThrottleRetentionJob deletes error notification records whose window has closed.
func NewThrottleRetentionJob(params ThrottleRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Throttle == nil {
		return nil, fmt.Errorf("throttle required")
	}
	return &throttleRetentionJob{
		logg:     params.Logger,
		throttle: params.Throttle,
		now:      time.Now,
	}, nil
}

type throttleRetentionJob struct {
	logg     *logger.Logger
	throttle throttlePurger
	now      func() time.Time
}

func (j *throttleRetentionJob) Name() string { return "throttle-retention" }

func (j *throttleRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.throttle.Window())
	deleted, err := j.throttle.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("throttle retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "throttle retention complete")
	return nil
}
