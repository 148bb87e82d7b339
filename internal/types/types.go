package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TestType identifies how a test drives load
type TestType string

const (
	TestTypeSimple TestType = "simple"
	TestTypeJMeter TestType = "jmeter"
)

// FileType tags the uploaded script of a script-based test
type FileType string

const (
	FileTypeNone   FileType = ""
	FileTypeScript FileType = "script"
	FileTypeZip    FileType = "zip"
)

// Status is the lifecycle state of a test record
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true for complete, failed and cancelled
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// Normalize maps the empty status of a freshly stored record to created
func (s Status) Normalize() Status {
	if s == "" {
		return StatusCreated
	}
	return s
}

// Task status values reported by the execution fleet
const (
	TaskProvisioning = "PROVISIONING"
	TaskPending      = "PENDING"
	TaskRunning      = "RUNNING"
)

// TestRecord is a test definition together with its latest run state
type TestRecord struct {
	TestID          string          `json:"testId"`
	TestName        string          `json:"testName"`
	TestDescription string          `json:"testDescription"`
	TaskCount       int             `json:"taskCount"`
	TestScenario    TestScenario    `json:"testScenario"`
	TestType        TestType        `json:"testType,omitempty"`
	FileType        FileType        `json:"fileType,omitempty"`
	Status          Status          `json:"status,omitempty"`
	StartTime       string          `json:"startTime,omitempty"`
	EndTime         string          `json:"endTime,omitempty"`
	CompleteTasks   *int            `json:"completeTasks,omitempty"`
	TaskError       json.RawMessage `json:"taskError,omitempty"`
	ErrorReason     string          `json:"errorReason,omitempty"`
	Results         *ResultsReport  `json:"results,omitempty"`
	History         []HistoryEntry  `json:"history,omitempty"`
	Tasks           []Task          `json:"tasks,omitempty"`
}

// IsSimple reports whether the record is an inline HTTP request test.
// Records stored before test types existed carry an empty type.
func (r TestRecord) IsSimple() bool {
	return r.TestType == "" || r.TestType == TestTypeSimple
}

// Execution returns the load profile of the record, or a zero value
func (r TestRecord) Execution() Execution {
	if len(r.TestScenario.Execution) == 0 {
		return Execution{}
	}
	return r.TestScenario.Execution[0]
}

// Submission is the create-or-update payload sent to the execution service
type Submission struct {
	TestID          string       `json:"testId"`
	TestName        string       `json:"testName"`
	TestDescription string       `json:"testDescription"`
	TaskCount       int          `json:"taskCount"`
	TestScenario    TestScenario `json:"testScenario"`
	TestType        TestType     `json:"testType"`
	FileType        FileType     `json:"fileType"`
}

// ResultsReport holds the aggregated counters of one run or one label
type ResultsReport struct {
	Label        string          `json:"label,omitempty"`
	Throughput   float64         `json:"throughput"`
	Succ         float64         `json:"succ"`
	Fail         float64         `json:"fail"`
	Bytes        float64         `json:"bytes"`
	AvgRt        float64         `json:"avg_rt"`
	AvgLt        float64         `json:"avg_lt"`
	AvgCt        float64         `json:"avg_ct"`
	P100         float64         `json:"p100_0"`
	P99_9        float64         `json:"p99_9"`
	P99          float64         `json:"p99_0"`
	P95          float64         `json:"p95_0"`
	P90          float64         `json:"p90_0"`
	P50          float64         `json:"p50_0"`
	P0           float64         `json:"p0_0"`
	RC           []ErrorCount    `json:"rc,omitempty"`
	TestDuration float64         `json:"testDuration"`
	Labels       []ResultsReport `json:"labels,omitempty"`
}

// PercentilesMonotonic returns true when p100_0 >= p99_9 >= ... >= p0_0
func (r ResultsReport) PercentilesMonotonic() bool {
	ordered := []float64{r.P100, r.P99_9, r.P99, r.P95, r.P90, r.P50, r.P0}
	for i := 1; i < len(ordered); i++ {
		if ordered[i] > ordered[i-1] {
			return false
		}
	}
	return true
}

// ErrorCount tallies responses with one status or error code
type ErrorCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// UnmarshalJSON accepts the code as a JSON string or number
func (e *ErrorCount) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code  json.RawMessage `json:"code"`
		Count int             `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Count = raw.Count
	e.Code = ""
	if len(raw.Code) == 0 || string(raw.Code) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Code, &s); err == nil {
		e.Code = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.Code, &n); err != nil {
		return fmt.Errorf("invalid error code %s: %w", string(raw.Code), err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		e.Code = strconv.FormatInt(i, 10)
		return nil
	}
	e.Code = n.String()
	return nil
}

// HistoryEntry is an immutable record of a finished run
type HistoryEntry struct {
	ID      string        `json:"id"`
	EndTime string        `json:"endTime,omitempty"`
	Results ResultsReport `json:"results"`
}

// Task is a status snapshot of one worker task
type Task struct {
	TaskArn    string `json:"taskArn,omitempty"`
	LastStatus string `json:"lastStatus"`
}
