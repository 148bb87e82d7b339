package lifecycle

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/studiowebux/dlts/internal/types"
)

// TimeLayout is the timestamp format of startTime and endTime.
// It sorts lexicographically in time order.
const TimeLayout = "2006-01-02 15:04:05"

// FailurePayload is the error detail of a failed run; either field may be set
type FailurePayload struct {
	TaskError   json.RawMessage
	ErrorReason string
}

// CanEdit reports whether the test definition may be changed
func CanEdit(status types.Status) bool {
	return status.Normalize() != types.StatusRunning
}

// CanDelete reports whether the test may be removed
func CanDelete(status types.Status) bool {
	return status.Normalize() != types.StatusRunning
}

// CanCancel reports whether the test has a run that can be stopped
func CanCancel(status types.Status) bool {
	return status.Normalize() == types.StatusRunning
}

// CanStartNewTest is the fleet-wide admission rule: nothing may start while
// any test is running. anyRunning must be fetched fresh for every check.
func CanStartNewTest(anyRunning bool) bool {
	return !anyRunning
}

// CanStart combines the per-test rule with the admission rule
func CanStart(status types.Status, anyRunning bool) bool {
	return status.Normalize() != types.StatusRunning && CanStartNewTest(anyRunning)
}

// Start moves a test to running. A test holding a finished run is reset
// first so the run lands in its history.
func Start(rec types.TestRecord, anyRunning bool, now time.Time) (types.TestRecord, error) {
	status := rec.Status.Normalize()
	if !CanStart(status, anyRunning) {
		return rec, &types.TransitionError{From: status, Action: "start"}
	}

	next := clone(rec)
	if status.IsTerminal() {
		var err error
		next, err = Reset(next, HistoryID(next))
		if err != nil {
			return rec, err
		}
	}

	next.Status = types.StatusRunning
	next.StartTime = now.UTC().Format(TimeLayout)
	next.EndTime = ""
	return next, nil
}

// Complete records a successful run
func Complete(rec types.TestRecord, completeTasks int, results types.ResultsReport, now time.Time) (types.TestRecord, error) {
	if err := requireRunning(rec, "complete"); err != nil {
		return rec, err
	}

	next := clone(rec)
	next.Status = types.StatusComplete
	next.EndTime = now.UTC().Format(TimeLayout)
	next.CompleteTasks = &completeTasks
	next.Results = &results
	next.Tasks = nil
	return next, nil
}

// Fail records a failed run with its error detail
func Fail(rec types.TestRecord, payload FailurePayload, now time.Time) (types.TestRecord, error) {
	if err := requireRunning(rec, "fail"); err != nil {
		return rec, err
	}

	next := clone(rec)
	next.Status = types.StatusFailed
	next.EndTime = now.UTC().Format(TimeLayout)
	if len(payload.TaskError) > 0 {
		next.TaskError = append(json.RawMessage(nil), payload.TaskError...)
	}
	next.ErrorReason = payload.ErrorReason
	next.Tasks = nil
	return next, nil
}

// Cancel stops a running test
func Cancel(rec types.TestRecord, now time.Time) (types.TestRecord, error) {
	if err := requireRunning(rec, "cancel"); err != nil {
		return rec, err
	}

	next := clone(rec)
	next.Status = types.StatusCancelled
	next.EndTime = now.UTC().Format(TimeLayout)
	next.Tasks = nil
	return next, nil
}

// Reset returns a finished test to created. Every finished run is appended
// to the history under historyID before its results are cleared. Failed and
// cancelled runs without results are kept with an empty report.
func Reset(rec types.TestRecord, historyID string) (types.TestRecord, error) {
	status := rec.Status.Normalize()
	if status == types.StatusCreated {
		return clone(rec), nil
	}
	if !status.IsTerminal() {
		return rec, &types.TransitionError{From: status, Action: "reset"}
	}

	next := clone(rec)
	var results types.ResultsReport
	if next.Results != nil {
		results = *next.Results
	}
	next.History = append(next.History, types.HistoryEntry{
		ID:      historyID,
		EndTime: next.EndTime,
		Results: results,
	})

	next.Status = types.StatusCreated
	next.Results = nil
	next.CompleteTasks = nil
	next.TaskError = nil
	next.ErrorReason = ""
	next.EndTime = ""
	next.Tasks = nil
	return next, nil
}

// HistoryID derives a history entry id from the test id and the run's end time
func HistoryID(rec types.TestRecord) string {
	stamp := rec.EndTime
	if stamp == "" {
		stamp = rec.StartTime
	}
	stamp = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, stamp)
	if stamp == "" {
		return rec.TestID
	}
	return rec.TestID + "-" + stamp
}

// FailureText returns the indented task error, or the error reason when there is none
func FailureText(rec types.TestRecord) string {
	if len(rec.TaskError) > 0 && string(rec.TaskError) != "null" {
		var v any
		if err := json.Unmarshal(rec.TaskError, &v); err == nil {
			if data, err := json.MarshalIndent(v, "", "  "); err == nil {
				return string(data)
			}
		}
		return string(rec.TaskError)
	}
	return rec.ErrorReason
}

func requireRunning(rec types.TestRecord, action string) error {
	status := rec.Status.Normalize()
	if status != types.StatusRunning {
		return &types.TransitionError{From: status, Action: action}
	}
	return nil
}

// clone copies the record so transitions never share memory with their input
func clone(rec types.TestRecord) types.TestRecord {
	next := rec
	if rec.History != nil {
		next.History = make([]types.HistoryEntry, len(rec.History))
		for i, h := range rec.History {
			h.Results = cloneResults(h.Results)
			next.History[i] = h
		}
	}
	if rec.Tasks != nil {
		next.Tasks = append([]types.Task(nil), rec.Tasks...)
	}
	if rec.Results != nil {
		results := cloneResults(*rec.Results)
		next.Results = &results
	}
	if rec.CompleteTasks != nil {
		n := *rec.CompleteTasks
		next.CompleteTasks = &n
	}
	if rec.TaskError != nil {
		next.TaskError = append(json.RawMessage(nil), rec.TaskError...)
	}
	return next
}

func cloneResults(r types.ResultsReport) types.ResultsReport {
	if r.RC != nil {
		r.RC = append([]types.ErrorCount(nil), r.RC...)
	}
	if r.Labels != nil {
		labels := make([]types.ResultsReport, len(r.Labels))
		for i, l := range r.Labels {
			labels[i] = cloneResults(l)
		}
		r.Labels = labels
	}
	return r
}
