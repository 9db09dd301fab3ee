package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/resellsync/internal/reconcile"
	"github.com/angelmondragon/resellsync/internal/repricing"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

type stubSource struct{ name string }

func (s stubSource) Name() string    { return s.name }
func (s stubSource) BaseURL() string { return "https://" + s.name }
func (s stubSource) Fetch(context.Context) ([]reconcile.ScrapedItem, error) {
	return nil, nil
}

type fakeSyncer struct {
	synced []string
	failOn string
}

func (f *fakeSyncer) Sync(_ context.Context, src reconcile.SnapshotSource) (reconcile.SyncStats, error) {
	f.synced = append(f.synced, src.Name())
	if src.Name() == f.failOn {
		return reconcile.SyncStats{}, errors.New("fetch failed")
	}
	return reconcile.SyncStats{Total: 1}, nil
}

func TestSyncJobContinuesPastFailingSource(t *testing.T) {
	syncer := &fakeSyncer{failOn: "a"}
	job, err := NewSyncJob(SyncJobParams{
		Logger:  logger.Nop(),
		Runner:  syncer,
		Sources: []reconcile.SnapshotSource{stubSource{"a"}, stubSource{"b"}},
	})
	if err != nil {
		t.Fatalf("NewSyncJob: %v", err)
	}
	if job.Name() != "sync" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing source")
	}
	if len(syncer.synced) != 2 {
		t.Fatalf("expected both sources synced, got %v", syncer.synced)
	}
}

func TestSyncJobRequiresSources(t *testing.T) {
	if _, err := NewSyncJob(SyncJobParams{Logger: logger.Nop(), Runner: &fakeSyncer{}}); err == nil {
		t.Fatal("expected error without sources")
	}
}

type fakeCycle struct {
	stats repricing.CycleStats
	err   error
	runs  int
}

func (f *fakeCycle) RunCycle(context.Context) (repricing.CycleStats, error) {
	f.runs++
	return f.stats, f.err
}

func TestRepriceJobRunsCycle(t *testing.T) {
	engine := &fakeCycle{stats: repricing.CycleStats{Processed: 3, Errors: 1}}
	job, err := NewRepriceJob(RepriceJobParams{Logger: logger.Nop(), Engine: engine})
	if err != nil {
		t.Fatalf("NewRepriceJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.runs != 1 {
		t.Fatalf("expected one cycle, got %d", engine.runs)
	}

	engine.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected cycle error")
	}
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) Window() time.Duration { return 24 * time.Hour }

func (f *fakePurger) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestThrottleRetentionJobUsesWindowCutoff(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	jobIface, err := NewThrottleRetentionJob(ThrottleRetentionJobParams{Logger: logger.Nop(), Throttle: purger})
	if err != nil {
		t.Fatalf("NewThrottleRetentionJob: %v", err)
	}
	job := jobIface.(*throttleRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-24 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoff)
	}

	purger.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
