package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/studiowebux/dlts/internal/cli"
	"github.com/studiowebux/dlts/internal/config"
)

var (
	version = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dlts",
	Short: "Distributed load test console",
	Long: `dlts defines, launches and reviews distributed load tests.

Tests are described in YAML or JSON form files. Simple tests hit one HTTP
endpoint; JMeter tests upload a .jmx script or a .zip bundle.

Settings come from the environment and from .env.local, .env and ~/.dlts/.env.

Examples:
  dlts compile checkout.yaml           # Validate a form and print the payload
  dlts submit checkout.yaml            # Create a test and start it
  dlts submit checkout.yaml --id abc   # Edit test abc and start it again
  dlts list                            # List tests, most recent first
  dlts show abc -o json --query results # Show results as JSON
  dlts history abc                     # Show finished runs`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Output flags shared by commands that print data
var (
	flagOutput      string
	flagFilter      string
	flagQuery       string
	flagMetricsFile string
)

// Command specific flags
var (
	flagTestID        string
	flagYes           bool
	flagJTL           string
	flagReport        string
	flagCompleteTasks int
	flagFail          string
)

var compileCmd = &cobra.Command{
	Use:   "compile <form-file>",
	Short: "Validate a form file and print the submission payload",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Compile(app, cli.CompileOptions{FormPath: args[0], ExistingID: flagTestID, Output: outputOptions()})
	}),
}

var submitCmd = &cobra.Command{
	Use:   "submit <form-file>",
	Short: "Create or edit a test from a form file and start it",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Submit(ctx, app, cli.SubmitOptions{FormPath: args[0], TestID: flagTestID, Output: outputOptions()})
	}),
}

var startCmd = &cobra.Command{
	Use:   "start <test-id>",
	Short: "Run an existing test again",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Start(ctx, app, args[0])
	}),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <test-id>",
	Short: "Cancel a running test",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Cancel(ctx, app, args[0])
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <test-id>",
	Short: "Delete a test and its history",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Delete(ctx, app, cli.DeleteOptions{TestID: args[0], Yes: flagYes})
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tests",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.List(ctx, app, outputOptions())
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <test-id>",
	Short: "Show a test with its current run and results",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Show(ctx, app, args[0], outputOptions())
	}),
}

var historyCmd = &cobra.Command{
	Use:   "history <test-id>",
	Short: "Show the finished runs of a test",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.History(ctx, app, args[0], outputOptions())
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export <test-id>",
	Short: "Print the form of a test as YAML for editing",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Export(ctx, app, args[0])
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download <test-id>",
	Short: "Print a short-lived link to the script of a JMeter test",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Download(ctx, app, args[0])
	}),
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <test-id>",
	Short: "Complete or fail a running test on the local backend",
	Long: `Complete or fail a running test on the local backend.

Use --jtl for a JMeter CSV results file, --report for an aggregated JSON
report, or --fail with a reason or a JSON task error.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Ingest(ctx, app, cli.IngestOptions{
			TestID:        args[0],
			JTLPath:       flagJTL,
			ReportPath:    flagReport,
			CompleteTasks: flagCompleteTasks,
			FailReason:    flagFail,
		})
	}),
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the counters of this process in Prometheus text format",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *cli.App, args []string) error {
		return cli.Metrics(app)
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus text metrics to this file after the command")

	for _, cmd := range []*cobra.Command{compileCmd, submitCmd, listCmd, showCmd, historyCmd} {
		cmd.Flags().StringVarP(&flagOutput, "output", "o", "text", "Output format (json/yaml/text)")
		cmd.Flags().StringVar(&flagFilter, "filter", "", "JMESPath filter applied to the JSON output")
		cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "JMESPath query or $(shell command) applied to the JSON output")
	}

	compileCmd.Flags().StringVar(&flagTestID, "id", "", "Compile as an edit of this test")
	submitCmd.Flags().StringVar(&flagTestID, "id", "", "Edit this test instead of creating one")
	deleteCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Do not ask for confirmation")
	ingestCmd.Flags().StringVar(&flagJTL, "jtl", "", "JMeter CSV results file")
	ingestCmd.Flags().StringVar(&flagReport, "report", "", "Aggregated results report (JSON)")
	ingestCmd.Flags().IntVar(&flagCompleteTasks, "complete-tasks", 0, "Number of tasks that finished, with --report")
	ingestCmd.Flags().StringVar(&flagFail, "fail", "", "Mark the run failed with this reason or JSON task error")

	rootCmd.AddCommand(compileCmd, submitCmd, startCmd, cancelCmd, deleteCmd, listCmd,
		showCmd, historyCmd, exportCmd, downloadCmd, ingestCmd, metricsCmd)
}

func outputOptions() cli.OutputOptions {
	return cli.OutputOptions{Format: flagOutput, Filter: flagFilter, Query: flagQuery}
}

// withApp loads settings, builds the app and closes it after fn
func withApp(fn func(ctx context.Context, app *cli.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		settings, err := config.Load(config.EnvFiles())
		if err != nil {
			return err
		}
		if flagMetricsFile != "" {
			settings.MetricsFile = flagMetricsFile
		}

		ctx := cmd.Context()
		app, err := cli.NewApp(ctx, settings, os.Stdin, os.Stdout, os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		return fn(ctx, app, args)
	}
}
