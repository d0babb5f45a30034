package state

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.InitSchema())
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	assert.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "nested", "state.db")
	require.NoError(t, store.Open(path))
	require.NoError(t, store.InitSchema())
	assert.FileExists(t, path)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun("recipe.yml", 1)
	assert.EqualError(t, err, "database not opened")
	_, err = store.GetRun("x")
	assert.EqualError(t, err, "database not opened")
	assert.EqualError(t, store.CompleteRun("x", core.RunStatusCompleted, 0, ""), "database not opened")
	_, err = store.ListRuns(10)
	assert.EqualError(t, err, "database not opened")
	assert.EqualError(t, store.InitSchema(), "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	ctx := context.Background()
	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// idempotent
	require.NoError(t, store.Migrate(ctx))
	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("people.yml", math.MaxUint64)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, core.RunStatusRunning, run.Status)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "people.yml", got.Recipe)
	assert.Equal(t, uint64(math.MaxUint64), got.Seed)
	assert.Equal(t, core.RunStatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)

	require.NoError(t, store.CompleteRun(run.ID, core.RunStatusFailed, 12, "recipe.yml:3: boom"))

	got, err = store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, got.Status)
	assert.Equal(t, int64(12), got.Rows)
	assert.Equal(t, "recipe.yml:3: boom", got.Error)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLiteStore_Errors(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun("missing")
	assert.EqualError(t, err, "run not found: missing")

	err = store.CompleteRun("missing", core.RunStatusCompleted, 0, "")
	assert.EqualError(t, err, "run not found: missing")
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	var ids []string
	for i := range 3 {
		run, err := store.CreateRun("r.yml", uint64(i))
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	runs, err = store.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
