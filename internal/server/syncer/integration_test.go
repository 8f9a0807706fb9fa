package syncer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/server/storage/sqlite"
	"github.com/iudanet/zendfast/internal/server/syncer"
)

func setupService(t *testing.T) (*syncer.Service, *sqlite.Storage) {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return syncer.NewService(store, logger, nil), store
}

func TestSync_EndToEnd_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	const user = "user-1"

	require.NoError(t, store.Insert(ctx, models.TableFastingSessions, models.Record{
		"id": "1", "user_id": user, "plan": "server", "updated_at": "2025-01-10T10:00:00.000Z",
	}))

	t.Run("newer local change overwrites server", func(t *testing.T) {
		result, err := svc.Sync(ctx, user, []models.LocalChange{{
			Table:  models.TableFastingSessions,
			Action: models.ActionUpdate,
			Data:   models.Record{"id": "1", "plan": "client", "updated_at": "2025-01-10T10:00:01.000Z"},
		}}, nil)
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Empty(t, result.Conflicts)

		got, err := store.Get(ctx, models.TableFastingSessions, "1", user)
		require.NoError(t, err)
		assert.Equal(t, "client", got["plan"])
	})

	t.Run("older local change becomes a conflict", func(t *testing.T) {
		result, err := svc.Sync(ctx, user, []models.LocalChange{{
			Table:  models.TableFastingSessions,
			Action: models.ActionUpdate,
			Data:   models.Record{"id": "1", "plan": "stale", "updated_at": "2025-01-10T09:00:00.000Z"},
		}}, nil)
		require.NoError(t, err)

		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, "client", result.Conflicts[0].ResolvedData["plan"])

		got, err := store.Get(ctx, models.TableFastingSessions, "1", user)
		require.NoError(t, err)
		assert.Equal(t, "client", got["plan"], "store is not written")
	})
}

func TestSync_EndToEnd_ServerChangesSinceCheckpoint(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	const user = "user-1"

	require.NoError(t, store.Insert(ctx, models.TableHydrationLogs, models.Record{
		"id": "old", "user_id": user, "created_at": "2025-01-01T00:00:00.000Z",
	}))
	require.NoError(t, store.Insert(ctx, models.TableHydrationLogs, models.Record{
		"id": "new", "user_id": user, "created_at": "2025-01-10T00:00:00.000Z",
	}))
	require.NoError(t, store.Insert(ctx, models.TableHydrationLogs, models.Record{
		"id": "foreign", "user_id": "user-2", "created_at": "2025-01-10T00:00:00.000Z",
	}))

	checkpoint := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	result, err := svc.Sync(ctx, user, nil, &checkpoint)
	require.NoError(t, err)

	logs := result.ServerChanges[models.TableHydrationLogs]
	require.Len(t, logs, 1)
	assert.Equal(t, "new", logs[0]["id"])
	assert.Empty(t, result.ServerChanges[models.TableFastingSessions])
	assert.Empty(t, result.ServerChanges[models.TableUserMetrics])
}

func TestSync_EndToEnd_OwnershipAcrossUsers(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)

	require.NoError(t, store.Insert(ctx, models.TableUserMetrics, models.Record{
		"id": "m1", "user_id": "owner", "updated_at": "2025-01-10T10:00:00.000Z",
	}))

	// другой пользователь не видит запись и не может ее перезаписать
	result, err := svc.Sync(ctx, "intruder", []models.LocalChange{{
		Table:  models.TableUserMetrics,
		Action: models.ActionUpdate,
		Data:   models.Record{"id": "m1", "updated_at": "2030-01-01T00:00:00.000Z"},
	}}, nil)
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "Update failed:")

	got, err := store.Get(ctx, models.TableUserMetrics, "m1", "owner")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10T10:00:00.000Z", got["updated_at"])
}
