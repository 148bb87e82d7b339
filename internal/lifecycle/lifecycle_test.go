package lifecycle

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/dlts/internal/types"
)

var now = time.Date(2024, 3, 2, 9, 30, 15, 0, time.UTC)

var allStatuses = []types.Status{
	"",
	types.StatusCreated,
	types.StatusRunning,
	types.StatusComplete,
	types.StatusFailed,
	types.StatusCancelled,
}

func TestPredicates(t *testing.T) {
	for _, s := range allStatuses {
		running := s == types.StatusRunning
		t.Run(string(s.Normalize())+"/"+string(s), func(t *testing.T) {
			assert.Equal(t, !running, CanEdit(s))
			assert.Equal(t, !running, CanDelete(s))
			assert.Equal(t, running, CanCancel(s))
			assert.Equal(t, !running, CanStart(s, false))
			assert.False(t, CanStart(s, true))
		})
	}
}

func TestCanStartNewTest(t *testing.T) {
	assert.False(t, CanStartNewTest(true))
	assert.True(t, CanStartNewTest(false))
}

func TestStart(t *testing.T) {
	rec := types.TestRecord{TestID: "t1", Status: types.StatusCreated}

	next, err := Start(rec, false, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, next.Status)
	assert.Equal(t, "2024-03-02 09:30:15", next.StartTime)
	assert.Equal(t, types.StatusCreated, rec.Status, "input must not change")

	_, err = Start(rec, true, now)
	var terr *types.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "start", terr.Action)

	_, err = Start(next, false, now)
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, types.StatusRunning, terr.From)
}

func TestStart_FromTerminalArchivesRun(t *testing.T) {
	rec := types.TestRecord{
		TestID:    "t1",
		Status:    types.StatusComplete,
		StartTime: "2024-03-01 10:00:00",
		EndTime:   "2024-03-01 10:10:00",
		Results:   &types.ResultsReport{Throughput: 10},
	}

	next, err := Start(rec, false, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, next.Status)
	assert.Nil(t, next.Results)
	assert.Empty(t, next.EndTime)
	require.Len(t, next.History, 1)
	assert.Equal(t, "t1-20240301101000", next.History[0].ID)
	assert.Equal(t, "2024-03-01 10:10:00", next.History[0].EndTime)
	assert.Equal(t, 10.0, next.History[0].Results.Throughput)
	assert.Empty(t, rec.History)
}

func TestStart_FromFailedArchivesRun(t *testing.T) {
	rec := types.TestRecord{
		TestID:      "t1",
		Status:      types.StatusFailed,
		EndTime:     "2024-03-01 10:10:00",
		ErrorReason: "boom",
	}

	next, err := Start(rec, false, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, next.Status)
	require.Len(t, next.History, 1)
	assert.Equal(t, "t1-20240301101000", next.History[0].ID)
	assert.Equal(t, types.ResultsReport{}, next.History[0].Results)
}

func TestTransitionsDoNotShareResults(t *testing.T) {
	rec := types.TestRecord{
		TestID:    "t1",
		Status:    types.StatusComplete,
		EndTime:   "2024-03-01 10:10:00",
		TaskError: json.RawMessage(`"x"`),
		Results: &types.ResultsReport{
			RC:     []types.ErrorCount{{Code: "500", Count: 2}},
			Labels: []types.ResultsReport{{Label: "GET /", RC: []types.ErrorCount{{Code: "404", Count: 1}}}},
		},
		History: []types.HistoryEntry{{ID: "old", Results: types.ResultsReport{RC: []types.ErrorCount{{Code: "503", Count: 4}}}}},
	}

	next, err := Reset(rec, "h")
	require.NoError(t, err)
	copied := clone(rec)

	rec.Results.RC[0].Count = 99
	rec.Results.Labels[0].Label = "changed"
	rec.Results.Labels[0].RC[0].Count = 99
	rec.History[0].Results.RC[0].Count = 99
	rec.TaskError[1] = 'y'

	require.Len(t, next.History, 2)
	assert.Equal(t, 4, next.History[0].Results.RC[0].Count)
	assert.Equal(t, 2, next.History[1].Results.RC[0].Count)
	assert.Equal(t, "GET /", next.History[1].Results.Labels[0].Label)
	assert.Equal(t, 1, next.History[1].Results.Labels[0].RC[0].Count)

	assert.Equal(t, 2, copied.Results.RC[0].Count)
	assert.Equal(t, 1, copied.Results.Labels[0].RC[0].Count)
	assert.Equal(t, 4, copied.History[0].Results.RC[0].Count)
	assert.Equal(t, `"x"`, string(copied.TaskError))
}

func TestCompleteFailCancel_RequireRunning(t *testing.T) {
	for _, s := range allStatuses {
		if s == types.StatusRunning {
			continue
		}
		rec := types.TestRecord{Status: s}

		_, err := Complete(rec, 1, types.ResultsReport{}, now)
		assert.Error(t, err)
		_, err = Fail(rec, FailurePayload{ErrorReason: "x"}, now)
		assert.Error(t, err)
		_, err = Cancel(rec, now)
		assert.Error(t, err)
	}
}

func TestComplete(t *testing.T) {
	rec := types.TestRecord{Status: types.StatusRunning, Tasks: []types.Task{{LastStatus: types.TaskRunning}}}

	next, err := Complete(rec, 4, types.ResultsReport{Throughput: 200}, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, next.Status)
	require.NotNil(t, next.CompleteTasks)
	assert.Equal(t, 4, *next.CompleteTasks)
	assert.Equal(t, 200.0, next.Results.Throughput)
	assert.Equal(t, "2024-03-02 09:30:15", next.EndTime)
	assert.Nil(t, next.Tasks)
	assert.Len(t, rec.Tasks, 1)
}

func TestFail(t *testing.T) {
	rec := types.TestRecord{Status: types.StatusRunning}

	next, err := Fail(rec, FailurePayload{TaskError: json.RawMessage(`{"reason":"OOM"}`)}, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, next.Status)
	assert.Equal(t, "{\n  \"reason\": \"OOM\"\n}", FailureText(next))

	next, err = Fail(rec, FailurePayload{ErrorReason: "image pull failed"}, now)
	require.NoError(t, err)
	assert.Equal(t, "image pull failed", FailureText(next))
}

func TestCancel(t *testing.T) {
	next, err := Cancel(types.TestRecord{Status: types.StatusRunning}, now)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCancelled, next.Status)
	assert.Nil(t, next.Results)
}

func TestReset(t *testing.T) {
	t.Run("complete run goes to history", func(t *testing.T) {
		rec := types.TestRecord{
			Status:  types.StatusComplete,
			EndTime: "2024-03-01 10:10:00",
			Results: &types.ResultsReport{Throughput: 7},
			History: []types.HistoryEntry{{ID: "old"}},
		}
		n := 3
		rec.CompleteTasks = &n

		next, err := Reset(rec, "h2")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCreated, next.Status)
		assert.Nil(t, next.Results)
		assert.Nil(t, next.CompleteTasks)
		require.Len(t, next.History, 2)
		assert.Equal(t, "old", next.History[0].ID)
		assert.Equal(t, types.HistoryEntry{ID: "h2", EndTime: "2024-03-01 10:10:00", Results: types.ResultsReport{Throughput: 7}}, next.History[1])
		assert.Len(t, rec.History, 1, "input history must not grow")
		assert.NotNil(t, rec.Results)
	})

	t.Run("failed run clears error", func(t *testing.T) {
		rec := types.TestRecord{Status: types.StatusFailed, ErrorReason: "boom", TaskError: json.RawMessage(`"x"`)}
		next, err := Reset(rec, "h")
		require.NoError(t, err)
		require.Len(t, next.History, 1)
		assert.Equal(t, types.HistoryEntry{ID: "h"}, next.History[0])
		assert.Empty(t, next.ErrorReason)
		assert.Nil(t, next.TaskError)
	})

	t.Run("cancelled run keeps an empty entry", func(t *testing.T) {
		rec := types.TestRecord{Status: types.StatusCancelled, EndTime: "2024-03-01 10:05:00"}
		next, err := Reset(rec, "h3")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCreated, next.Status)
		require.Len(t, next.History, 1)
		assert.Equal(t, types.HistoryEntry{ID: "h3", EndTime: "2024-03-01 10:05:00"}, next.History[0])
	})

	t.Run("running cannot reset", func(t *testing.T) {
		_, err := Reset(types.TestRecord{Status: types.StatusRunning}, "h")
		var terr *types.TransitionError
		assert.True(t, errors.As(err, &terr))
	})

	t.Run("created is a no-op", func(t *testing.T) {
		next, err := Reset(types.TestRecord{TestID: "x"}, "h")
		require.NoError(t, err)
		assert.Equal(t, "x", next.TestID)
		assert.Empty(t, next.History)
	})
}

func TestHistoryID(t *testing.T) {
	assert.Equal(t, "t-20240301101000", HistoryID(types.TestRecord{TestID: "t", EndTime: "2024-03-01 10:10:00"}))
	assert.Equal(t, "t-20240301", HistoryID(types.TestRecord{TestID: "t", StartTime: "2024-03-01"}))
	assert.Equal(t, "t", HistoryID(types.TestRecord{TestID: "t"}))
}

func TestSummarize(t *testing.T) {
	tasks := []types.Task{
		{LastStatus: types.TaskProvisioning},
		{LastStatus: types.TaskPending},
		{LastStatus: types.TaskPending},
		{LastStatus: types.TaskRunning},
		{LastStatus: "STOPPED"},
	}

	snap := Summarize(tasks, 10)
	assert.Equal(t, RunningSnapshot{Provisioning: 1, Pending: 2, Running: 1, Other: 1, Total: 5, TaskCount: 10}, snap)
	assert.Equal(t, "5 of 10", snap.Progress())
}

func TestAnyRunning(t *testing.T) {
	assert.False(t, AnyRunning(nil))
	assert.True(t, AnyRunning([]types.Task{{LastStatus: types.TaskPending}}))
}
