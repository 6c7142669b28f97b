package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofclaim/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strp(s string) *string { return &s }

func sampleRoof() *model.RoofReportData {
	area := "2450"
	return &model.RoofReportData{
		StructureCount: 1,
		Structures: []model.RoofStructure{{
			StructureNumber: 1,
			Measurements:    model.Measurements{TotalRoofArea: &area},
		}},
	}
}

func TestSQLite_GetTask_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	task, err := st.GetTask(context.Background(), "u1", "nope")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSQLite_UpsertCreatesThenMerges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Name: strp("Smith residence")})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCreated, created.Status)

	status := model.TaskStatusReview
	_, err = st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Status: &status, Roof: sampleRoof()})
	require.NoError(t, err)

	got, err := st.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smith residence", got.Name)
	assert.Equal(t, model.TaskStatusReview, got.Status)
	require.NotNil(t, got.Roof)
	assert.Equal(t, "2450", *got.Roof.Structures[0].Measurements.TotalRoofArea)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestSQLite_TasksAreScopedByUser(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Name: strp("mine")})
	require.NoError(t, err)

	other, err := st.GetTask(ctx, "u2", "t1")
	require.NoError(t, err)
	assert.Nil(t, other)

	err = st.DeleteTask(ctx, "u2", "t1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSQLite_ClearComparison(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Comparison: &model.ComparisonResult{Success: true, StructureCount: 1}})
	require.NoError(t, err)

	_, err = st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Roof: sampleRoof(), ClearComparison: true})
	require.NoError(t, err)

	got, err := st.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Nil(t, got.Comparison)
	assert.NotNil(t, got.Roof)
}

func TestSQLite_ListTasks(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	review := model.TaskStatusReview
	_, err := st.UpsertTask(ctx, "u1", "a", model.TaskUpdate{Name: strp("first")})
	require.NoError(t, err)
	_, err = st.UpsertTask(ctx, "u1", "b", model.TaskUpdate{Name: strp("second"), Status: &review})
	require.NoError(t, err)
	_, err = st.UpsertTask(ctx, "u2", "c", model.TaskUpdate{Name: strp("other user")})
	require.NoError(t, err)

	all, err := st.ListTasks(ctx, "u1", TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID, "most recently updated first")
	assert.Equal(t, "a", all[1].ID)

	filtered, err := st.ListTasks(ctx, "u1", TaskFilter{Status: model.TaskStatusReview})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].ID)

	paged, err := st.ListTasks(ctx, "u1", TaskFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "a", paged[0].ID)

	none, err := st.ListTasks(ctx, "nobody", TaskFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLite_DeleteTask(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{})
	require.NoError(t, err)
	require.NoError(t, st.DeleteTask(ctx, "u1", "t1"))

	got, err := st.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = st.DeleteTask(ctx, "u1", "t1")
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "delete", pe.Op)
}

func TestSQLite_ConcurrentUpserts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := model.TaskStatusExtracting
			_, err := st.UpsertTask(ctx, "u1", "t1", model.TaskUpdate{Status: &status})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusExtracting, got.Status)
}

func TestSQLite_PingAndMigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Migrate(context.Background()))
}
