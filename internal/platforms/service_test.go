package platforms

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/resellsync/pkg/db/dbtest"
	"github.com/angelmondragon/resellsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Repository: NewRepository(dbtest.Open(t)),
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func TestGetOrCreateIsStableByName(t *testing.T) {
	svc := newTestService(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "SourceX", "https://sourcex.in")
	require.NoError(t, err)
	require.Equal(t, enums.SyncStatusIdle, first.SyncStatus)
	require.NotNil(t, first.BaseURL)

	second, err := svc.GetOrCreate(ctx, " SourceX ", "")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateRequiresName(t *testing.T) {
	svc := newTestService(t, time.Now())
	_, err := svc.GetOrCreate(context.Background(), "  ", "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	platform, err := svc.GetOrCreate(ctx, "SourceX", "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRunning(ctx, platform.ID))
	got, err := svc.Get(ctx, platform.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SyncStatusRunning, got.SyncStatus)
	require.NotNil(t, got.LastSyncStart)
	require.Nil(t, got.LastSyncEnd)

	require.NoError(t, svc.MarkFinished(ctx, platform.ID, enums.SyncStatusFailed))
	got, err = svc.Get(ctx, platform.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SyncStatusFailed, got.SyncStatus)
	require.NotNil(t, got.LastSyncEnd)
	require.True(t, got.LastSyncEnd.Equal(now))

	err = svc.MarkFinished(ctx, platform.ID, enums.SyncStatusRunning)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestMarkRunningUnknownPlatform(t *testing.T) {
	svc := newTestService(t, time.Now())
	require.Error(t, svc.MarkRunning(context.Background(), uuid.New()))

	_, err := svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCountListingsEmpty(t *testing.T) {
	svc := newTestService(t, time.Now())
	platform, err := svc.GetOrCreate(context.Background(), "SourceX", "")
	require.NoError(t, err)
	count, err := svc.CountListings(context.Background(), platform.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}
