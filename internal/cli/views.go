package cli

import (
	"github.com/studiowebux/dlts/internal/lifecycle"
	"github.com/studiowebux/dlts/internal/report"
	"github.com/studiowebux/dlts/internal/scenario"
	"github.com/studiowebux/dlts/internal/types"
)

// ListRow is one line of the test list
type ListRow struct {
	TestID          string       `json:"testId"`
	TestName        string       `json:"testName"`
	TestDescription string       `json:"testDescription"`
	TestType        string       `json:"testType"`
	Status          types.Status `json:"status"`
	StartTime       string       `json:"startTime"`
}

// ListRows builds the list in display order, most recent start first
func ListRows(records []types.TestRecord) []ListRow {
	sorted := report.SortRecords(records)
	rows := make([]ListRow, 0, len(sorted))
	for _, rec := range sorted {
		testType := string(rec.TestType)
		if rec.IsSimple() {
			testType = string(types.TestTypeSimple)
		}
		rows = append(rows, ListRow{
			TestID:          rec.TestID,
			TestName:        rec.TestName,
			TestDescription: rec.TestDescription,
			TestType:        testType,
			Status:          rec.Status.Normalize(),
			StartTime:       rec.StartTime,
		})
	}
	return rows
}

// TestView is the detail view of one test
type TestView struct {
	TestID          string                     `json:"testId"`
	TestName        string                     `json:"testName"`
	TestDescription string                     `json:"testDescription"`
	TestType        types.TestType             `json:"testType"`
	FileType        types.FileType             `json:"fileType,omitempty"`
	Status          types.Status               `json:"status"`
	TaskCount       int                        `json:"taskCount"`
	Concurrency     int                        `json:"concurrency"`
	RampUp          string                     `json:"rampUp"`
	HoldFor         string                     `json:"holdFor"`
	Endpoint        string                     `json:"endpoint,omitempty"`
	Method          string                     `json:"method,omitempty"`
	StartTime       string                     `json:"startTime,omitempty"`
	EndTime         string                     `json:"endTime,omitempty"`
	Running         *lifecycle.RunningSnapshot `json:"running,omitempty"`
	Failure         string                     `json:"failure,omitempty"`
	Results         []report.Summary           `json:"results,omitempty"`
	History         []report.HistoryRow        `json:"history,omitempty"`
}

// BuildTestView assembles the detail view. fleetTasks is used for the
// running snapshot when the record carries no task list of its own.
func BuildTestView(rec types.TestRecord, fleetTasks []types.Task) TestView {
	exec := rec.Execution()
	form := scenario.Decompile(rec)
	status := rec.Status.Normalize()

	view := TestView{
		TestID:          rec.TestID,
		TestName:        rec.TestName,
		TestDescription: rec.TestDescription,
		TestType:        form.EffectiveTestType(),
		FileType:        form.FileType,
		Status:          status,
		TaskCount:       rec.TaskCount,
		Concurrency:     exec.Concurrency,
		RampUp:          exec.RampUp,
		HoldFor:         exec.HoldFor,
		Endpoint:        form.Endpoint,
		Method:          form.Method,
		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
	}

	switch status {
	case types.StatusRunning:
		tasks := rec.Tasks
		if len(tasks) == 0 {
			tasks = fleetTasks
		}
		snap := lifecycle.Summarize(tasks, rec.TaskCount)
		view.Running = &snap
	case types.StatusFailed:
		view.Failure = lifecycle.FailureText(rec)
	case types.StatusComplete:
		view.Results = report.Breakdown(rec, report.FallbackDuration(rec))
	}

	if len(rec.History) > 0 {
		view.History = report.HistoryRows(rec.History)
	}
	return view
}
