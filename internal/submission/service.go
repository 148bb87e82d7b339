package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studiowebux/dlts/internal/execution"
	"github.com/studiowebux/dlts/internal/lifecycle"
	"github.com/studiowebux/dlts/internal/objectstore"
	"github.com/studiowebux/dlts/internal/scenario"
	"github.com/studiowebux/dlts/internal/telemetry"
	"github.com/studiowebux/dlts/internal/types"
)

// ErrRefused is wrapped by every action the lifecycle rules do not allow
var ErrRefused = errors.New("action refused")

// Policy decides what happens when a script upload fails
type Policy string

const (
	UploadBestEffort Policy = "best-effort"
	UploadStrict     Policy = "strict"
)

// Result describes a submitted test
type Result struct {
	TestID     string
	Submission types.Submission
	// UploadPath is the object path of the uploaded script, if any
	UploadPath string
	// UploadErr is set when a best-effort upload failed
	UploadErr error
}

// Service wires the compiler to the execution service and the object store
type Service struct {
	compiler *scenario.Compiler
	exec     execution.Service
	objects  objectstore.Store
	policy   Policy
	expiry   time.Duration
	metrics  *telemetry.Metrics
	log      logrus.FieldLogger
}

// Option configures a Service
type Option func(*Service)

// WithPolicy sets the upload failure policy
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithCompiler replaces the default compiler
func WithCompiler(c *scenario.Compiler) Option {
	return func(s *Service) {
		s.compiler = c
	}
}

// WithDownloadExpiry sets how long download links stay valid
func WithDownloadExpiry(d time.Duration) Option {
	return func(s *Service) {
		s.expiry = d
	}
}

// WithMetrics records outcomes on m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// New creates a Service. objects may be nil when only simple tests are used.
func New(exec execution.Service, objects objectstore.Store, opts ...Option) *Service {
	s := &Service{
		compiler: scenario.NewCompiler(),
		exec:     exec,
		objects:  objects,
		policy:   UploadBestEffort,
		expiry:   objectstore.DefaultURLExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

// Compile validates the form without any side effect
func (s *Service) Compile(form scenario.FormValues, existingID string) (*scenario.Compiled, error) {
	compiled, err := s.compiler.Compile(form, existingID)
	if err != nil {
		s.metrics.Compilation(string(form.EffectiveTestType()), telemetry.OutcomeError)
		return nil, err
	}
	s.metrics.Compilation(string(compiled.Submission.TestType), telemetry.OutcomeOK)
	return compiled, nil
}

// Create compiles a new test and starts it
func (s *Service) Create(ctx context.Context, form scenario.FormValues) (*Result, error) {
	compiled, err := s.Compile(form, "")
	if err != nil {
		return nil, err
	}
	if err := s.admit(ctx, "create"); err != nil {
		return nil, err
	}
	return s.submit(ctx, compiled)
}

// Edit recompiles an existing test under its id and starts it again
func (s *Service) Edit(ctx context.Context, testID string, form scenario.FormValues) (*Result, error) {
	rec, err := s.exec.Get(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	if !lifecycle.CanEdit(rec.Status) {
		s.metrics.Action("edit", telemetry.OutcomeRefused)
		return nil, refused(rec.Status, "edit")
	}

	compiled, err := s.Compile(form, testID)
	if err != nil {
		return nil, err
	}
	if err := s.admit(ctx, "edit"); err != nil {
		return nil, err
	}
	return s.submit(ctx, compiled)
}

// Start runs an existing test again with its stored definition
func (s *Service) Start(ctx context.Context, testID string) (*Result, error) {
	rec, err := s.exec.Get(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	anyRunning, err := s.anyRunning(ctx)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanStart(rec.Status, anyRunning) {
		s.metrics.Action("start", telemetry.OutcomeRefused)
		if anyRunning {
			return nil, fmt.Errorf("%w: another test is running", ErrRefused)
		}
		return nil, refused(rec.Status, "start")
	}

	sub, err := scenario.Restart(rec)
	if err != nil {
		return nil, err
	}
	id, err := s.exec.Submit(ctx, sub)
	if err != nil {
		s.metrics.Action("start", telemetry.OutcomeError)
		return nil, err
	}
	s.metrics.Action("start", telemetry.OutcomeOK)
	s.log.WithField("test_id", id).Info("test started")
	return &Result{TestID: id, Submission: sub}, nil
}

// Cancel stops the running test
func (s *Service) Cancel(ctx context.Context, testID string) error {
	rec, err := s.exec.Get(ctx, testID)
	if err != nil {
		return fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	if !lifecycle.CanCancel(rec.Status) {
		s.metrics.Action("cancel", telemetry.OutcomeRefused)
		return refused(rec.Status, "cancel")
	}
	if err := s.exec.Cancel(ctx, testID); err != nil {
		s.metrics.Action("cancel", telemetry.OutcomeError)
		return err
	}
	s.metrics.Action("cancel", telemetry.OutcomeOK)
	s.log.WithField("test_id", testID).Info("test cancelled")
	return nil
}

// Delete removes a test that is not running
func (s *Service) Delete(ctx context.Context, testID string) error {
	rec, err := s.exec.Get(ctx, testID)
	if err != nil {
		return fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	if !lifecycle.CanDelete(rec.Status) {
		s.metrics.Action("delete", telemetry.OutcomeRefused)
		return refused(rec.Status, "delete")
	}
	if err := s.exec.Delete(ctx, testID); err != nil {
		s.metrics.Action("delete", telemetry.OutcomeError)
		return err
	}
	s.metrics.Action("delete", telemetry.OutcomeOK)
	s.log.WithField("test_id", testID).Info("test deleted")
	return nil
}

// DownloadURL returns a short-lived link to the script of a script test
func (s *Service) DownloadURL(ctx context.Context, testID string) (string, error) {
	rec, err := s.exec.Get(ctx, testID)
	if err != nil {
		return "", fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	if rec.IsSimple() {
		return "", &types.ValidationError{Field: "testType", Message: "simple tests have no script to download"}
	}
	if s.objects == nil {
		return "", fmt.Errorf("no object store configured")
	}

	path := scenario.ScriptPath(rec.TestID, rec.FileType)
	link, err := s.objects.URL(ctx, path, s.expiry)
	if err != nil {
		return "", err
	}
	return link, nil
}

// Running summarizes the task list for a running test
func (s *Service) Running(ctx context.Context, taskCount int) (lifecycle.RunningSnapshot, error) {
	tasks, err := s.exec.Tasks(ctx)
	if err != nil {
		return lifecycle.RunningSnapshot{}, err
	}
	return lifecycle.Summarize(tasks, taskCount), nil
}

func (s *Service) submit(ctx context.Context, compiled *scenario.Compiled) (*Result, error) {
	sub := compiled.Submission
	res := &Result{Submission: sub}
	log := s.log.WithField("test_id", sub.TestID)

	if plan := compiled.Upload; plan != nil {
		if err := s.upload(ctx, plan); err != nil {
			s.metrics.Upload(telemetry.OutcomeError)
			if s.policy == UploadStrict {
				return nil, fmt.Errorf("failed to upload script: %w", err)
			}
			log.WithError(err).WithField("path", plan.Path).Warn("script upload failed, submitting anyway")
			res.UploadErr = err
		} else {
			s.metrics.Upload(telemetry.OutcomeOK)
			res.UploadPath = plan.Path
			log.WithField("path", plan.Path).Debug("script uploaded")
		}
	} else if sub.TestType != types.TestTypeSimple {
		s.metrics.Upload(telemetry.OutcomeSkipped)
	}

	id, err := s.exec.Submit(ctx, sub)
	if err != nil {
		s.metrics.Submission(telemetry.OutcomeError)
		return nil, err
	}
	s.metrics.Submission(telemetry.OutcomeOK)
	log.Info("test submitted")

	res.TestID = id
	return res, nil
}

func (s *Service) upload(ctx context.Context, plan *scenario.UploadPlan) error {
	if s.objects == nil {
		return fmt.Errorf("no object store configured")
	}
	return s.objects.Put(ctx, plan.Path, bytes.NewReader(plan.File.Content), plan.File.DetectContentType())
}

// admit refuses when any test is running
func (s *Service) admit(ctx context.Context, action string) error {
	anyRunning, err := s.anyRunning(ctx)
	if err != nil {
		return err
	}
	if !lifecycle.CanStartNewTest(anyRunning) {
		s.metrics.Action(action, telemetry.OutcomeRefused)
		return fmt.Errorf("%w: another test is running", ErrRefused)
	}
	return nil
}

func (s *Service) anyRunning(ctx context.Context) (bool, error) {
	tasks, err := s.exec.Tasks(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list tasks: %w", err)
	}
	return lifecycle.AnyRunning(tasks), nil
}

func refused(status types.Status, action string) error {
	return fmt.Errorf("%w: %w", ErrRefused, &types.TransitionError{From: status.Normalize(), Action: action})
}
