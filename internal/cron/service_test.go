package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/resellsync/pkg/logger"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
	hook func()
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.hook != nil {
		t.hook()
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Name:     "test",
		Logger:   logger.Nop(),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Interval: time.Minute,
		MinPause: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service := newTestService(t, lock, success, failure)

	err := service.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected job error, got %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "sync"}
	service := newTestService(t, &fakeLock{acquired: true}, job)

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
}

func TestServicePauseHonoursMinimum(t *testing.T) {
	service := newTestService(t, &fakeLock{})
	cases := map[time.Duration]time.Duration{
		10 * time.Second: 50 * time.Second,
		58 * time.Second: 5 * time.Second,
		2 * time.Minute:  5 * time.Second,
	}
	for elapsed, want := range cases {
		if got := service.pause(elapsed); got != want {
			t.Fatalf("pause(%s) = %s, want %s", elapsed, got, want)
		}
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &testJob{name: "reprice", hook: cancel}
	service := newTestService(t, &fakeLock{}, job)

	err := service.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected one run, got %d", job.runs)
	}
}
