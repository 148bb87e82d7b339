package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/dlts/internal/lifecycle"
	"github.com/studiowebux/dlts/internal/report"
	"github.com/studiowebux/dlts/internal/scenario"
	"github.com/studiowebux/dlts/internal/submission"
	"github.com/studiowebux/dlts/internal/types"
)

type uploadView struct {
	Path        string         `json:"path"`
	FileType    types.FileType `json:"fileType"`
	Size        string         `json:"size"`
	ContentType string         `json:"contentType,omitempty"`
}

type compileView struct {
	Submission types.Submission `json:"submission"`
	Upload     *uploadView      `json:"upload,omitempty"`
}

// CompileOptions contains options for the compile command
type CompileOptions struct {
	FormPath   string
	ExistingID string
	Output     OutputOptions
}

// Compile validates a form file and prints the payload it would submit
func Compile(app *App, opts CompileOptions) error {
	form, err := LoadForm(opts.FormPath, scenario.MaxFileSize)
	if err != nil {
		return err
	}
	compiled, err := app.Submissions.Compile(form, opts.ExistingID)
	if err != nil {
		return err
	}

	view := compileView{Submission: compiled.Submission}
	if plan := compiled.Upload; plan != nil {
		view.Upload = &uploadView{
			Path:        plan.Path,
			FileType:    plan.FileType,
			Size:        units.HumanSize(float64(len(plan.File.Content))),
			ContentType: plan.File.DetectContentType(),
		}
	}
	return render(context.Background(), app.Out, view, opts.Output, nil)
}

type submitView struct {
	TestID      string `json:"testId"`
	UploadPath  string `json:"uploadPath,omitempty"`
	UploadError string `json:"uploadError,omitempty"`
}

// SubmitOptions contains options for the submit command
type SubmitOptions struct {
	FormPath string
	// TestID edits an existing test instead of creating one
	TestID string
	Output OutputOptions
}

// Submit creates or edits a test from a form file and starts it
func Submit(ctx context.Context, app *App, opts SubmitOptions) error {
	form, err := LoadForm(opts.FormPath, scenario.MaxFileSize)
	if err != nil {
		return err
	}

	var res *submission.Result
	if opts.TestID != "" {
		res, err = app.Submissions.Edit(ctx, opts.TestID, form)
	} else {
		res, err = app.Submissions.Create(ctx, form)
	}
	if err != nil {
		return err
	}

	view := submitView{TestID: res.TestID, UploadPath: res.UploadPath}
	if res.UploadErr != nil {
		view.UploadError = res.UploadErr.Error()
	}
	return render(ctx, app.Out, view, opts.Output, func(w io.Writer) error {
		if view.UploadError != "" {
			fmt.Fprintf(w, "Warning: script upload failed: %s\n", view.UploadError)
		}
		_, err := fmt.Fprintf(w, "Test %s submitted\n", view.TestID)
		return err
	})
}

// Start runs an existing test again
func Start(ctx context.Context, app *App, testID string) error {
	res, err := app.Submissions.Start(ctx, testID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.Out, "Test %s started\n", res.TestID)
	return err
}

// Cancel stops a running test
func Cancel(ctx context.Context, app *App, testID string) error {
	if err := app.Submissions.Cancel(ctx, testID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(app.Out, "Test %s cancelled\n", testID)
	return err
}

// DeleteOptions contains options for the delete command
type DeleteOptions struct {
	TestID string
	Yes    bool
}

// Delete removes a test, asking first when attached to a terminal
func Delete(ctx context.Context, app *App, opts DeleteOptions) error {
	if !opts.Yes && isInteractive() {
		ok, err := confirm(app.In, app.Out, fmt.Sprintf("Delete test %s and its history?", opts.TestID))
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(app.Out, "Aborted")
			return err
		}
	}

	if err := app.Submissions.Delete(ctx, opts.TestID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(app.Out, "Test %s deleted\n", opts.TestID)
	return err
}

// List prints every test, most recently started first
func List(ctx context.Context, app *App, output OutputOptions) error {
	records, err := app.Exec.List(ctx)
	if err != nil {
		return err
	}
	rows := ListRows(records)
	return render(ctx, app.Out, rows, output, func(w io.Writer) error {
		return writeListText(w, rows)
	})
}

// Show prints the detail view of one test
func Show(ctx context.Context, app *App, testID string, output OutputOptions) error {
	var (
		rec   types.TestRecord
		tasks []types.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = app.Exec.Get(gctx, testID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = app.Exec.Tasks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	view := BuildTestView(rec, tasks)
	return render(ctx, app.Out, view, output, func(w io.Writer) error {
		return writeTestText(w, view)
	})
}

// History prints the finished runs of a test, most recent first
func History(ctx context.Context, app *App, testID string, output OutputOptions) error {
	rec, err := app.Exec.Get(ctx, testID)
	if err != nil {
		return err
	}
	rows := report.HistoryRows(rec.History)
	return render(ctx, app.Out, rows, output, func(w io.Writer) error {
		return writeHistoryText(w, rows)
	})
}

// Export prints the editable form of a test
func Export(ctx context.Context, app *App, testID string) error {
	rec, err := app.Exec.Get(ctx, testID)
	if err != nil {
		return err
	}
	data, err := MarshalForm(scenario.Decompile(rec))
	if err != nil {
		return err
	}
	_, err = app.Out.Write(data)
	return err
}

// Download prints a short-lived link to a test's script
func Download(ctx context.Context, app *App, testID string) error {
	link, err := app.Submissions.DownloadURL(ctx, testID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.Out, link)
	return err
}

// IngestOptions contains options for the ingest command. Exactly one source is used.
type IngestOptions struct {
	TestID        string
	JTLPath       string
	ReportPath    string
	CompleteTasks int
	FailReason    string
}

// Ingest completes or fails a running test on the local backend
func Ingest(ctx context.Context, app *App, opts IngestOptions) error {
	local, err := app.RequireLocal("ingest")
	if err != nil {
		return err
	}

	sources := 0
	for _, s := range []string{opts.JTLPath, opts.ReportPath, opts.FailReason} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of --jtl, --report or --fail is required")
	}

	log := app.Log.WithField("test_id", opts.TestID)

	switch {
	case opts.JTLPath != "":
		f, err := os.Open(opts.JTLPath)
		if err != nil {
			return fmt.Errorf("failed to open results file: %w", err)
		}
		defer f.Close()

		samples, err := report.ReadJTL(f)
		if err != nil {
			return err
		}
		if err := local.IngestSamples(ctx, opts.TestID, samples); err != nil {
			return err
		}
		log.WithField("samples", len(samples)).Info("samples ingested")

	case opts.ReportPath != "":
		data, err := os.ReadFile(opts.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to read report file: %w", err)
		}
		var results types.ResultsReport
		if err := json.Unmarshal(data, &results); err != nil {
			return fmt.Errorf("failed to parse report file: %w", err)
		}
		if err := local.Ingest(ctx, opts.TestID, results, opts.CompleteTasks); err != nil {
			return err
		}
		log.Info("report ingested")

	default:
		payload := lifecycle.FailurePayload{ErrorReason: opts.FailReason}
		if raw := strings.TrimSpace(opts.FailReason); json.Valid([]byte(raw)) && strings.HasPrefix(raw, "{") {
			payload = lifecycle.FailurePayload{TaskError: json.RawMessage(raw)}
		}
		if err := local.Fail(ctx, opts.TestID, payload); err != nil {
			return err
		}
		log.Info("test marked failed")
	}

	_, err = fmt.Fprintf(app.Out, "Test %s updated\n", opts.TestID)
	return err
}

// Metrics prints the counters of this process
func Metrics(app *App) error {
	return app.Metrics.WriteText(app.Out)
}
