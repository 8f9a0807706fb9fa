package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/internal/observability"
	"github.com/iudanet/zendfast/internal/server/storage"
)

const (
	testUser = "user-123"
	tOld     = "2025-01-10T10:00:00.000Z"
	tNew     = "2025-01-10T10:00:01.000Z"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStoreMock возвращает мок, в котором все операции успешны
func newStoreMock() *RecordStoreMock {
	return &RecordStoreMock{
		GetFunc: func(ctx context.Context, table models.Table, id, userID string) (models.Record, error) {
			return nil, storage.ErrRecordNotFound
		},
		InsertFunc: func(ctx context.Context, table models.Table, record models.Record) error {
			return nil
		},
		UpsertFunc: func(ctx context.Context, table models.Table, record models.Record) error {
			return nil
		},
		DeleteFunc: func(ctx context.Context, table models.Table, id, userID string) error {
			return nil
		},
		ChangedSinceFunc: func(ctx context.Context, table models.Table, userID string, since time.Time) ([]models.Record, error) {
			return nil, nil
		},
	}
}

func change(table models.Table, action models.Action, data models.Record) models.LocalChange {
	return models.LocalChange{
		Table:          table,
		Action:         action,
		Data:           data,
		LocalTimestamp: "2025-01-01T00:00:00.000Z",
	}
}

func TestService_Sync_BatchTooLarge(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	changes := make([]models.LocalChange, MaxBatchSize+1)
	for i := range changes {
		changes[i] = change(models.TableHydrationLogs, models.ActionInsert, models.Record{"amount_ml": 100})
	}

	result, err := svc.Sync(context.Background(), testUser, changes, nil)

	require.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Nil(t, result)
	assert.Empty(t, store.InsertCalls(), "no writes before rejection")
	assert.Empty(t, store.ChangedSinceCalls())
}

func TestService_Sync_MaxBatchAccepted(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	changes := make([]models.LocalChange, MaxBatchSize)
	for i := range changes {
		changes[i] = change(models.TableHydrationLogs, models.ActionInsert, models.Record{"amount_ml": 100})
	}

	result, err := svc.Sync(context.Background(), testUser, changes, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, store.InsertCalls(), MaxBatchSize)
}

func TestService_Sync_OwnerMismatch(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	changes := []models.LocalChange{
		change(models.TableFastingSessions, models.ActionInsert, models.Record{"id": "a", "user_id": testUser}),
		change(models.TableFastingSessions, models.ActionInsert, models.Record{"id": "b", "user_id": "someone-else"}),
		change(models.TableHydrationLogs, models.ActionInsert, models.Record{"id": "c"}),
	}

	result, err := svc.Sync(context.Background(), testUser, changes, nil)
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "User ID mismatch - unauthorized access", result.Errors[0].Error)
	assert.Equal(t, models.TableFastingSessions, result.Errors[0].Table)
	assert.Equal(t, models.ActionInsert, result.Errors[0].Action)
	assert.Equal(t, "someone-else", result.Errors[0].Data["user_id"])

	calls := store.InsertCalls()
	require.Len(t, calls, 2, "other items are applied")
	assert.Equal(t, "a", calls[0].Record["id"])
	assert.Equal(t, "c", calls[1].Record["id"])
}

func TestService_Sync_OwnerInjectedIntoCopy(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	data := models.Record{"id": "h1", "amount_ml": 250}
	_, err := svc.Sync(context.Background(), testUser, []models.LocalChange{
		change(models.TableHydrationLogs, models.ActionInsert, data),
	}, nil)
	require.NoError(t, err)

	require.Len(t, store.InsertCalls(), 1)
	assert.Equal(t, testUser, store.InsertCalls()[0].Record["user_id"])
	_, mutated := data["user_id"]
	assert.False(t, mutated, "submitted change stays untouched")
}

func TestService_Sync_UpdateLastWriteWins(t *testing.T) {
	tests := []struct {
		name         string
		local        string
		remote       string
		wantUpserts  int
		wantConflict bool
	}{
		{name: "local newer updates store", local: tNew, remote: tOld, wantUpserts: 1},
		{name: "remote newer yields conflict", local: tOld, remote: tNew, wantConflict: true},
		{name: "tie updates store", local: tOld, remote: tOld, wantUpserts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := models.Record{"id": "1", "user_id": testUser, "updated_at": tt.remote}
			store := newStoreMock()
			store.GetFunc = func(ctx context.Context, table models.Table, id, userID string) (models.Record, error) {
				assert.Equal(t, "1", id)
				assert.Equal(t, testUser, userID)
				return remote, nil
			}
			svc := NewService(store, testLogger(), nil)

			local := models.Record{"id": "1", "updated_at": tt.local, "plan": "16:8"}
			result, err := svc.Sync(context.Background(), testUser, []models.LocalChange{
				change(models.TableFastingSessions, models.ActionUpdate, local),
			}, nil)
			require.NoError(t, err)

			assert.True(t, result.Success)
			assert.Len(t, store.UpsertCalls(), tt.wantUpserts)
			if tt.wantConflict {
				require.Len(t, result.Conflicts, 1)
				assert.Equal(t, remote, result.Conflicts[0].ResolvedData)
				assert.Equal(t, models.TableFastingSessions, result.Conflicts[0].Table)
			} else {
				assert.Empty(t, result.Conflicts)
				assert.Equal(t, "16:8", store.UpsertCalls()[0].Record["plan"])
			}
		})
	}
}

func TestService_Sync_UpdateOfMissingRecordUpserts(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	result, err := svc.Sync(context.Background(), testUser, []models.LocalChange{
		change(models.TableUserMetrics, models.ActionUpdate, models.Record{"id": "m1", "weight_kg": 70}),
	}, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Len(t, store.UpsertCalls(), 1)
}

func TestService_Sync_ItemErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		setup   func(m *RecordStoreMock)
		change  models.LocalChange
		name    string
		wantErr string
	}{
		{
			name: "insert failure",
			setup: func(m *RecordStoreMock) {
				m.InsertFunc = func(context.Context, models.Table, models.Record) error { return boom }
			},
			change:  change(models.TableHydrationLogs, models.ActionInsert, models.Record{"id": "h"}),
			wantErr: "Insert failed: boom",
		},
		{
			name: "fetch failure",
			setup: func(m *RecordStoreMock) {
				m.GetFunc = func(context.Context, models.Table, string, string) (models.Record, error) { return nil, boom }
			},
			change:  change(models.TableFastingSessions, models.ActionUpdate, models.Record{"id": "s"}),
			wantErr: "Fetch failed: boom",
		},
		{
			name: "update failure",
			setup: func(m *RecordStoreMock) {
				m.UpsertFunc = func(context.Context, models.Table, models.Record) error { return boom }
			},
			change:  change(models.TableFastingSessions, models.ActionUpdate, models.Record{"id": "s"}),
			wantErr: "Update failed: boom",
		},
		{
			name: "delete failure",
			setup: func(m *RecordStoreMock) {
				m.DeleteFunc = func(context.Context, models.Table, string, string) error { return boom }
			},
			change:  change(models.TableFastingSessions, models.ActionDelete, models.Record{"id": "s"}),
			wantErr: "Delete failed: boom",
		},
		{
			name:    "update without id",
			change:  change(models.TableFastingSessions, models.ActionUpdate, models.Record{"plan": "x"}),
			wantErr: "Missing required field: id",
		},
		{
			name:    "delete without id",
			change:  change(models.TableFastingSessions, models.ActionDelete, models.Record{}),
			wantErr: "Missing required field: id",
		},
		{
			name:    "unknown table",
			change:  change("profiles", models.ActionInsert, models.Record{"id": "p"}),
			wantErr: "Unknown table: profiles",
		},
		{
			name:    "unknown action",
			change:  change(models.TableFastingSessions, "merge", models.Record{"id": "s"}),
			wantErr: "Unknown action: merge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStoreMock()
			if tt.setup != nil {
				tt.setup(store)
			}
			svc := NewService(store, testLogger(), nil)

			// следующее изменение использует другую операцию хранилища и применяется
			ok := change(models.TableHydrationLogs, models.ActionInsert, models.Record{"id": "after"})
			if tt.change.Action == models.ActionInsert {
				ok = change(models.TableHydrationLogs, models.ActionDelete, models.Record{"id": "after"})
			}
			result, err := svc.Sync(context.Background(), testUser, []models.LocalChange{tt.change, ok}, nil)
			require.NoError(t, err)

			assert.False(t, result.Success)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.wantErr, result.Errors[0].Error)
			assert.Equal(t, tt.change.Table, result.Errors[0].Table)
			assert.Equal(t, tt.change.Action, result.Errors[0].Action)
			assert.NotNil(t, result.ServerChanges)
		})
	}
}

func TestService_Sync_DeleteScopedToOwner(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)

	remoteNewer := models.Record{"id": "s1", "updated_at": "2030-01-01T00:00:00Z"}
	store.GetFunc = func(context.Context, models.Table, string, string) (models.Record, error) {
		return remoteNewer, nil
	}

	result, err := svc.Sync(context.Background(), testUser, []models.LocalChange{
		change(models.TableFastingSessions, models.ActionDelete, models.Record{"id": "s1", "updated_at": tOld}),
	}, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Conflicts)
	require.Len(t, store.DeleteCalls(), 1)
	assert.Equal(t, "s1", store.DeleteCalls()[0].ID)
	assert.Equal(t, testUser, store.DeleteCalls()[0].UserID)
}

func TestService_Sync_ServerChanges(t *testing.T) {
	lastSync := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	fresh := models.Record{"id": "s9", "user_id": testUser, "updated_at": tNew}

	store := newStoreMock()
	store.ChangedSinceFunc = func(ctx context.Context, table models.Table, userID string, since time.Time) ([]models.Record, error) {
		assert.Equal(t, testUser, userID)
		assert.True(t, lastSync.Equal(since))
		switch table {
		case models.TableFastingSessions:
			return []models.Record{fresh}, nil
		case models.TableUserMetrics:
			return nil, errors.New("relation does not exist")
		}
		return []models.Record{}, nil
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	svc := NewService(store, testLogger(), metrics)

	result, err := svc.Sync(context.Background(), testUser, nil, &lastSync)
	require.NoError(t, err)

	assert.True(t, result.Success, "pull failures do not fail the batch")
	require.Len(t, result.ServerChanges, 3)
	assert.Equal(t, []models.Record{fresh}, result.ServerChanges[models.TableFastingSessions])
	assert.NotNil(t, result.ServerChanges[models.TableHydrationLogs])
	assert.NotNil(t, result.ServerChanges[models.TableUserMetrics])
	assert.Empty(t, result.ServerChanges[models.TableUserMetrics])
	assert.Len(t, store.ChangedSinceCalls(), 3)
	n, err := testutil.GatherAndCount(reg, "zendfast_sync_pull_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_Sync_DefaultsToEpoch(t *testing.T) {
	store := newStoreMock()
	svc := NewService(store, testLogger(), nil)
	fixed := time.Date(2025, 1, 10, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	svc.now = func() time.Time { return fixed }

	result, err := svc.Sync(context.Background(), testUser, []models.LocalChange{}, nil)
	require.NoError(t, err)

	for _, call := range store.ChangedSinceCalls() {
		assert.Equal(t, int64(0), call.Since.Unix())
	}
	assert.NotNil(t, result.Conflicts)
	assert.NotNil(t, result.Errors)
	assert.Equal(t, time.UTC, result.ServerTimestamp.Location())
	assert.True(t, fixed.Equal(result.ServerTimestamp))
}

func TestService_Sync_ProcessesInOrder(t *testing.T) {
	var order []string
	store := newStoreMock()
	store.InsertFunc = func(_ context.Context, _ models.Table, r models.Record) error {
		order = append(order, "insert:"+r["id"].(string))
		return nil
	}
	store.DeleteFunc = func(_ context.Context, _ models.Table, id, _ string) error {
		order = append(order, "delete:"+id)
		return nil
	}
	svc := NewService(store, testLogger(), nil)

	_, err := svc.Sync(context.Background(), testUser, []models.LocalChange{
		change(models.TableFastingSessions, models.ActionInsert, models.Record{"id": "1"}),
		change(models.TableFastingSessions, models.ActionDelete, models.Record{"id": "1"}),
		change(models.TableFastingSessions, models.ActionInsert, models.Record{"id": "2"}),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"insert:1", "delete:1", "insert:2"}, order)
}
