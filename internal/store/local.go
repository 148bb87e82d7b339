package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/studiowebux/dlts/internal/execution"
	"github.com/studiowebux/dlts/internal/lifecycle"
	"github.com/studiowebux/dlts/internal/migrations"
	"github.com/studiowebux/dlts/internal/report"
	"github.com/studiowebux/dlts/internal/types"
)

// LocalTaskPrefix prefixes the synthetic task ARNs of the local backend
const LocalTaskPrefix = "local/"

// Local is an execution backend kept in a SQLite database. It runs no load;
// results arrive through Ingest, IngestSamples or Fail.
type Local struct {
	db  *sql.DB
	now func() time.Time
	log logrus.FieldLogger
}

var _ execution.Service = (*Local)(nil)

// Option configures a Local store
type Option func(*Local)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Local) {
		l.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Local) {
		l.log = log
	}
}

// NewLocal opens the database and applies migrations
func NewLocal(dbPath string, opts ...Option) (*Local, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)
	l := &Local{db: db, now: time.Now, log: discard}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close closes the database connection
func (l *Local) Close() error {
	return l.db.Close()
}

// Submit stores the definition and starts a run, applying the lifecycle rules
func (l *Local) Submit(ctx context.Context, sub types.Submission) (string, error) {
	if sub.TestID == "" {
		return "", &types.ValidationError{Field: "testId", Message: "testId is required"}
	}
	if err := sub.TestScenario.Validate(); err != nil {
		return "", err
	}

	rec, err := l.Get(ctx, sub.TestID)
	switch {
	case errors.Is(err, execution.ErrNotFound):
		rec = types.TestRecord{TestID: sub.TestID, Status: types.StatusCreated}
	case err != nil:
		return "", err
	case !lifecycle.CanEdit(rec.Status):
		return "", &types.TransitionError{From: rec.Status, Action: "edit"}
	}

	rec.TestName = sub.TestName
	rec.TestDescription = sub.TestDescription
	rec.TaskCount = sub.TaskCount
	rec.TestScenario = sub.TestScenario
	rec.TestType = sub.TestType
	rec.FileType = sub.FileType

	tasks, err := l.Tasks(ctx)
	if err != nil {
		return "", err
	}
	started, err := lifecycle.Start(rec, lifecycle.AnyRunning(tasks), l.now())
	if err != nil {
		return "", err
	}

	if err := l.Save(ctx, started); err != nil {
		return "", err
	}
	if _, err := l.db.ExecContext(ctx, "DELETE FROM samples WHERE test_id = ?", rec.TestID); err != nil {
		return "", fmt.Errorf("failed to clear samples: %w", err)
	}

	l.log.WithFields(logrus.Fields{"test_id": rec.TestID, "history": len(started.History)}).Info("test started")
	return rec.TestID, nil
}

// Cancel stops a running test
func (l *Local) Cancel(ctx context.Context, testID string) error {
	return l.transition(ctx, testID, func(rec types.TestRecord) (types.TestRecord, error) {
		return lifecycle.Cancel(rec, l.now())
	})
}

// Ingest completes the running test with an aggregated report
func (l *Local) Ingest(ctx context.Context, testID string, results types.ResultsReport, completeTasks int) error {
	return l.transition(ctx, testID, func(rec types.TestRecord) (types.TestRecord, error) {
		return lifecycle.Complete(rec, completeTasks, results, l.now())
	})
}

// IngestSamples stores raw samples and completes the running test with their aggregate.
// The planned ramp-up plus hold-for is used as the run duration.
func (l *Local) IngestSamples(ctx context.Context, testID string, samples []report.Sample) error {
	rec, err := l.Get(ctx, testID)
	if err != nil {
		return err
	}
	if !lifecycle.CanCancel(rec.Status) {
		return &types.TransitionError{From: rec.Status.Normalize(), Action: "complete"}
	}

	if err := l.SaveSamples(ctx, testID, samples); err != nil {
		return err
	}
	stored, err := l.GetSamples(ctx, testID)
	if err != nil {
		return err
	}

	c := report.NewCollector()
	for _, s := range stored {
		c.Add(s)
	}
	return l.Ingest(ctx, testID, c.Report(report.FallbackDuration(rec)), rec.TaskCount)
}

// Fail marks the running test as failed
func (l *Local) Fail(ctx context.Context, testID string, payload lifecycle.FailurePayload) error {
	return l.transition(ctx, testID, func(rec types.TestRecord) (types.TestRecord, error) {
		return lifecycle.Fail(rec, payload, l.now())
	})
}

// Archive moves the finished run into history and returns the test to created.
// An empty historyID is derived from the run's timestamps.
func (l *Local) Archive(ctx context.Context, testID, historyID string) error {
	return l.transition(ctx, testID, func(rec types.TestRecord) (types.TestRecord, error) {
		if historyID == "" {
			historyID = lifecycle.HistoryID(rec)
		}
		return lifecycle.Reset(rec, historyID)
	})
}

func (l *Local) transition(ctx context.Context, testID string, fn func(types.TestRecord) (types.TestRecord, error)) error {
	rec, err := l.Get(ctx, testID)
	if err != nil {
		return err
	}
	next, err := fn(rec)
	if err != nil {
		return err
	}
	if err := l.Save(ctx, next); err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{"test_id": testID, "status": next.Status}).Info("test status changed")
	return nil
}

// Tasks returns one RUNNING task per requested task of every running test
func (l *Local) Tasks(ctx context.Context) ([]types.Task, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT test_id, task_count FROM test_records WHERE status = ? ORDER BY test_id
	`, types.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to query running tests: %w", err)
	}
	defer rows.Close()

	tasks := []types.Task{}
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		tasks = append(tasks, localTasks(id, count)...)
	}
	return tasks, rows.Err()
}

func localTasks(testID string, count int) []types.Task {
	tasks := make([]types.Task, 0, count)
	for i := 1; i <= count; i++ {
		tasks = append(tasks, types.Task{
			TaskArn:    fmt.Sprintf("%s%s/%d", LocalTaskPrefix, testID, i),
			LastStatus: types.TaskRunning,
		})
	}
	return tasks
}

// Delete removes a test, its history and its samples
func (l *Local) Delete(ctx context.Context, testID string) error {
	rec, err := l.Get(ctx, testID)
	if err != nil {
		return err
	}
	if !lifecycle.CanDelete(rec.Status) {
		return &types.TransitionError{From: rec.Status.Normalize(), Action: "delete"}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM samples WHERE test_id = ?",
		"DELETE FROM history_entries WHERE test_id = ?",
		"DELETE FROM test_records WHERE test_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, testID); err != nil {
			return fmt.Errorf("failed to delete test: %w", err)
		}
	}
	return tx.Commit()
}

// Save inserts or replaces a record. History entries already stored are kept.
func (l *Local) Save(ctx context.Context, rec types.TestRecord) error {
	scenario, err := json.Marshal(rec.TestScenario)
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}

	var results sql.NullString
	if rec.Results != nil {
		data, err := json.Marshal(rec.Results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		results = sql.NullString{String: string(data), Valid: true}
	}

	var completeTasks sql.NullInt64
	if rec.CompleteTasks != nil {
		completeTasks = sql.NullInt64{Int64: int64(*rec.CompleteTasks), Valid: true}
	}

	var taskError sql.NullString
	if len(rec.TaskError) > 0 {
		taskError = sql.NullString{String: string(rec.TaskError), Valid: true}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO test_records
		(test_id, test_name, test_description, task_count, test_scenario, test_type, file_type, status,
		 start_time, end_time, complete_tasks, task_error, error_reason, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(test_id) DO UPDATE SET
			test_name = excluded.test_name, test_description = excluded.test_description,
			task_count = excluded.task_count, test_scenario = excluded.test_scenario,
			test_type = excluded.test_type, file_type = excluded.file_type, status = excluded.status,
			start_time = excluded.start_time, end_time = excluded.end_time,
			complete_tasks = excluded.complete_tasks, task_error = excluded.task_error,
			error_reason = excluded.error_reason, results = excluded.results,
			updated_at = CURRENT_TIMESTAMP
	`, rec.TestID, rec.TestName, rec.TestDescription, rec.TaskCount, string(scenario), rec.TestType, rec.FileType,
		rec.Status.Normalize(), rec.StartTime, rec.EndTime, completeTasks, taskError, rec.ErrorReason, results)
	if err != nil {
		return fmt.Errorf("failed to save test: %w", err)
	}

	if len(rec.History) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO history_entries (test_id, history_id, end_time, results)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, entry := range rec.History {
			data, err := json.Marshal(entry.Results)
			if err != nil {
				return fmt.Errorf("failed to encode history results: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, rec.TestID, entry.ID, entry.EndTime, string(data)); err != nil {
				return fmt.Errorf("failed to insert history entry: %w", err)
			}
		}
	}

	return tx.Commit()
}

const recordColumns = `
	test_id, test_name, test_description, task_count, test_scenario, test_type, file_type, status,
	start_time, end_time, complete_tasks, task_error, error_reason, results
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.TestRecord, error) {
	var rec types.TestRecord
	var scenario string
	var completeTasks sql.NullInt64
	var taskError, results sql.NullString

	err := row.Scan(&rec.TestID, &rec.TestName, &rec.TestDescription, &rec.TaskCount, &scenario,
		&rec.TestType, &rec.FileType, &rec.Status, &rec.StartTime, &rec.EndTime,
		&completeTasks, &taskError, &rec.ErrorReason, &results)
	if err != nil {
		return rec, err
	}

	if err := json.Unmarshal([]byte(scenario), &rec.TestScenario); err != nil {
		return rec, fmt.Errorf("failed to decode scenario of %s: %w", rec.TestID, err)
	}
	if completeTasks.Valid {
		n := int(completeTasks.Int64)
		rec.CompleteTasks = &n
	}
	if taskError.Valid {
		rec.TaskError = json.RawMessage(taskError.String)
	}
	if results.Valid {
		rec.Results = &types.ResultsReport{}
		if err := json.Unmarshal([]byte(results.String), rec.Results); err != nil {
			return rec, fmt.Errorf("failed to decode results of %s: %w", rec.TestID, err)
		}
	}
	return rec, nil
}

// Get returns a record with its history, and its tasks when running
func (l *Local) Get(ctx context.Context, testID string) (types.TestRecord, error) {
	row := l.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM test_records WHERE test_id = ?", testID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.TestRecord{}, fmt.Errorf("test %s: %w", testID, execution.ErrNotFound)
	}
	if err != nil {
		return types.TestRecord{}, fmt.Errorf("failed to get test: %w", err)
	}

	rec.History, err = l.history(ctx, testID)
	if err != nil {
		return types.TestRecord{}, err
	}
	if rec.Status == types.StatusRunning {
		rec.Tasks = localTasks(rec.TestID, rec.TaskCount)
	}
	return rec, nil
}

func (l *Local) history(ctx context.Context, testID string) ([]types.HistoryEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT history_id, end_time, results FROM history_entries WHERE test_id = ? ORDER BY id
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var entry types.HistoryEntry
		var results string
		if err := rows.Scan(&entry.ID, &entry.EndTime, &results); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(results), &entry.Results); err != nil {
			return nil, fmt.Errorf("failed to decode history %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// List returns all records, newest start first, without history
func (l *Local) List(ctx context.Context) ([]types.TestRecord, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM test_records ORDER BY start_time DESC, test_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	records := []types.TestRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveSamples saves raw samples in a single transaction
func (l *Local) SaveSamples(ctx context.Context, testID string, samples []report.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (test_id, label, elapsed, latency, connect, bytes, success, code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.ExecContext(ctx, testID, s.Label, s.Elapsed, s.Latency, s.Connect, s.Bytes, s.Success, s.Code)
		if err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// GetSamples retrieves all samples of a test in insertion order
func (l *Local) GetSamples(ctx context.Context, testID string) ([]report.Sample, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT label, elapsed, latency, connect, bytes, success, COALESCE(code, '')
		FROM samples
		WHERE test_id = ?
		ORDER BY id
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []report.Sample
	for rows.Next() {
		var s report.Sample
		if err := rows.Scan(&s.Label, &s.Elapsed, &s.Latency, &s.Connect, &s.Bytes, &s.Success, &s.Code); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
