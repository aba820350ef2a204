package store_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/store"
	"github.com/nhle/ecomission/tests/testutil"
)

func TestSQLiteStore_KV(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "weekly_routines:2024-06-03", "[]"))
	require.NoError(t, s.Set(ctx, "weekly_routines:2024-06-10", "[]"))
	require.NoError(t, s.Set(ctx, "weekly_routines:2024-06-03", "[1]"))
	require.NoError(t, s.Set(ctx, "userName", `"kim"`))

	v, err := s.Get(ctx, "weekly_routines:2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, "[1]", v)

	keys, err := s.Keys(ctx, "weekly_routines:")
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly_routines:2024-06-03", "weekly_routines:2024-06-10"}, keys)

	require.NoError(t, s.Delete(ctx, "userName"))
	require.NoError(t, s.Delete(ctx, "userName"))
	_, err = s.Get(ctx, "userName")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLocal_DayMissions(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	local := store.NewLocal(kv, zerolog.Nop())

	assert.Empty(t, local.LoadDayMissions(ctx, "2024-06-05"))

	id := 12
	entries := []model.MissionEntry{
		{MissionCatalogID: 101, SubmissionLabel: "텀블러 사용", Completed: true, ServerRecordID: &id},
	}
	local.SaveDayMissions(ctx, "2024-06-05", entries)
	assert.Equal(t, entries, local.LoadDayMissions(ctx, "2024-06-05"))

	require.NoError(t, kv.Set(ctx, "personal_missions:2024-06-06", `{"missionId":1}`))
	assert.Empty(t, local.LoadDayMissions(ctx, "2024-06-06"), "non-array values read as empty")
}

func TestLocal_WeeklyRoutinesIdempotentSaveAndDelete(t *testing.T) {
	ctx := context.Background()
	local := testutil.NewTestLocal(t)

	def := model.WeeklyRoutineDefinition{MissionCatalogID: 101, SubmissionLabel: "장바구니", EffectiveStartDate: "2024-06-05"}
	local.SaveWeeklyRoutine(ctx, "2024-06-03", def)
	local.SaveWeeklyRoutine(ctx, "2024-06-03", def)
	local.SaveWeeklyRoutine(ctx, "2024-06-03", model.WeeklyRoutineDefinition{MissionCatalogID: 102, SubmissionLabel: "장바구니", EffectiveStartDate: "2024-06-03"})

	defs := local.LoadWeeklyRoutines(ctx, "2024-06-03")
	require.Len(t, defs, 2)
	assert.Equal(t, model.CalendarDate("2024-06-03"), defs[0].WeekStartDate)

	local.DeleteWeeklyRoutine(ctx, "2024-06-03", 101, "장바구니")
	defs = local.LoadWeeklyRoutines(ctx, "2024-06-03")
	require.Len(t, defs, 1)
	assert.Equal(t, 102, defs[0].MissionCatalogID)
}

func TestLocal_SaveWeeklyRoutineReplacesUnreadableList(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	var logs bytes.Buffer
	local := store.NewLocal(kv, zerolog.New(&logs))

	require.NoError(t, kv.Set(ctx, "weekly_routines:2024-06-03", `{"broken":`))
	local.SaveWeeklyRoutine(ctx, "2024-06-03", model.WeeklyRoutineDefinition{MissionCatalogID: 101, SubmissionLabel: "장바구니"})

	defs := local.LoadWeeklyRoutines(ctx, "2024-06-03")
	require.Len(t, defs, 1)
	assert.Equal(t, 101, defs[0].MissionCatalogID)
	assert.Contains(t, logs.String(), "overwriting unreadable weekly routines")

	logs.Reset()
	local.SaveWeeklyRoutine(ctx, "2024-06-10", model.WeeklyRoutineDefinition{MissionCatalogID: 102, SubmissionLabel: "a"})
	assert.NotContains(t, logs.String(), "overwriting")
}

func TestLocal_ExpandRoutinesForDate(t *testing.T) {
	ctx := context.Background()
	local := testutil.NewTestLocal(t)

	local.SaveWeeklyRoutine(ctx, "2024-06-03", model.WeeklyRoutineDefinition{MissionCatalogID: 101, SubmissionLabel: "a", EffectiveStartDate: "2024-06-03"})
	local.SaveWeeklyRoutine(ctx, "2024-06-03", model.WeeklyRoutineDefinition{MissionCatalogID: 102, SubmissionLabel: "b", EffectiveStartDate: "2024-06-06"})

	wed, err := local.ExpandRoutinesForDate(ctx, "2024-06-05")
	require.NoError(t, err)
	require.Len(t, wed, 1)
	assert.True(t, wed[0].IsWeeklyRoutine)
	assert.False(t, wed[0].Completed)
	assert.Nil(t, wed[0].ServerRecordID)
	require.NotNil(t, wed[0].RoutineID)

	fri, err := local.ExpandRoutinesForDate(ctx, "2024-06-07")
	require.NoError(t, err)
	require.Len(t, fri, 2)

	again, err := local.ExpandRoutinesForDate(ctx, "2024-06-07")
	require.NoError(t, err)
	for i := range fri {
		assert.Equal(t, *fri[i].RoutineID, *again[i].RoutineID, "routine ids are stable across expansions")
	}
	assert.Equal(t, *wed[0].RoutineID, *fri[0].RoutineID)
	assert.NotEqual(t, *fri[0].RoutineID, *fri[1].RoutineID)

	_, err = local.ExpandRoutinesForDate(ctx, "2024/06/07")
	assert.True(t, model.IsValidationError(err))
}

func TestRoutineID_Positive(t *testing.T) {
	id := store.RoutineID("2024-06-03", 101, "텀블러", 0)
	assert.Greater(t, id, 0)
	assert.Equal(t, id, store.RoutineID("2024-06-03", 101, "텀블러", 5))
	assert.NotEqual(t, id, store.RoutineID("2024-06-10", 101, "텀블러", 0))
}

type brokenStore struct{}

var errDiskFull = errors.New("disk full")

func (brokenStore) Get(context.Context, string) (string, error)    { return "", errDiskFull }
func (brokenStore) Set(context.Context, string, string) error      { return errDiskFull }
func (brokenStore) Delete(context.Context, string) error           { return errDiskFull }
func (brokenStore) Keys(context.Context, string) ([]string, error) { return nil, errDiskFull }

func TestLocal_SwallowsStorageFailures(t *testing.T) {
	ctx := context.Background()
	local := store.NewLocal(brokenStore{}, zerolog.Nop())

	assert.NotPanics(t, func() {
		local.SaveDayMissions(ctx, "2024-06-05", nil)
		local.SaveWeeklyRoutine(ctx, "2024-06-03", model.WeeklyRoutineDefinition{MissionCatalogID: 1, SubmissionLabel: "a"})
		local.DeleteWeeklyRoutine(ctx, "2024-06-03", 1, "a")
	})
	assert.Empty(t, local.LoadDayMissions(ctx, "2024-06-05"))
	assert.Empty(t, local.LoadWeeklyRoutines(ctx, "2024-06-03"))

	var name string
	assert.False(t, local.LoadValue(ctx, store.KeyUserName, &name))
}
