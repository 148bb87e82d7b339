package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/studiowebux/dlts/internal/filter"
	"github.com/studiowebux/dlts/internal/report"
)

// OutputOptions controls how a command prints its result
type OutputOptions struct {
	Format string // json, yaml, text
	Filter string // JMESPath filter expression
	Query  string // JMESPath query or $(shell command)
}

// render prints v in the requested format. text renders the human form and
// may be nil, in which case JSON is printed. A filter or query replaces v
// with its projection, which has no text form.
func render(ctx context.Context, w io.Writer, v any, opts OutputOptions, text func(io.Writer) error) error {
	if opts.Filter != "" || opts.Query != "" {
		p, err := filter.Compile(opts.Filter, opts.Query)
		if err != nil {
			return err
		}
		if v, err = p.Project(v); err != nil {
			return err
		}
		if p.Shell() {
			out, err := p.Pipe(ctx, v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, out)
			return err
		}
		text = nil
	}

	switch opts.Format {
	case "json":
		return writeJSON(w, v)

	case "yaml":
		// go through JSON so field names and sentinels match the json output
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		_, err = w.Write(out)
		return err

	case "", "text":
		if text == nil {
			return writeJSON(w, v)
		}
		return text(w)

	default:
		return fmt.Errorf("unknown output format %q (json/yaml/text)", opts.Format)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeListText(w io.Writer, rows []ListRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No tests")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tID\tDESCRIPTION\tTYPE\tLAST RUN\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.TestName, r.TestID, r.TestDescription, r.TestType, orDash(r.StartTime), r.Status)
	}
	return tw.Flush()
}

func writeTestText(w io.Writer, v TestView) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Name:\t%s\n", v.TestName)
	fmt.Fprintf(tw, "ID:\t%s\n", v.TestID)
	fmt.Fprintf(tw, "Description:\t%s\n", v.TestDescription)
	fmt.Fprintf(tw, "Type:\t%s\n", v.TestType)
	if v.Endpoint != "" {
		fmt.Fprintf(tw, "Request:\t%s %s\n", v.Method, v.Endpoint)
	}
	fmt.Fprintf(tw, "Task count:\t%d\n", v.TaskCount)
	fmt.Fprintf(tw, "Concurrency:\t%d\n", v.Concurrency)
	fmt.Fprintf(tw, "Ramp up:\t%s\n", v.RampUp)
	fmt.Fprintf(tw, "Hold for:\t%s\n", v.HoldFor)
	fmt.Fprintf(tw, "Status:\t%s\n", v.Status)
	fmt.Fprintf(tw, "Start time:\t%s\n", orDash(v.StartTime))
	fmt.Fprintf(tw, "End time:\t%s\n", orDash(v.EndTime))
	if err := tw.Flush(); err != nil {
		return err
	}

	if v.Running != nil {
		fmt.Fprintf(w, "\nTasks: %s (provisioning %d, pending %d, running %d)\n",
			v.Running.Progress(), v.Running.Provisioning, v.Running.Pending, v.Running.Running)
	}
	if v.Failure != "" {
		fmt.Fprintf(w, "\nFailure:\n%s\n", v.Failure)
	}
	for _, s := range v.Results {
		fmt.Fprintf(w, "\n[%s]\n", s.Label)
		if err := writeSummaryText(w, s); err != nil {
			return err
		}
	}
	if len(v.History) > 0 {
		fmt.Fprintln(w, "\nHistory:")
		return writeHistoryText(w, v.History)
	}
	return nil
}

func writeSummaryText(w io.Writer, s report.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Requests:\t%s\n", formatFloat(s.Throughput))
	fmt.Fprintf(tw, "Success:\t%s\n", formatFloat(s.Succ))
	fmt.Fprintf(tw, "Errors:\t%s\n", formatFloat(s.Fail))
	fmt.Fprintf(tw, "Requests/sec:\t%s\n", s.ThroughputPerSecond)
	fmt.Fprintf(tw, "Bandwidth:\t%s\n", s.Bandwidth)
	fmt.Fprintf(tw, "Avg response time:\t%ss\n", formatFloat(s.AvgRt))
	fmt.Fprintf(tw, "Avg latency:\t%ss\n", formatFloat(s.AvgLt))
	fmt.Fprintf(tw, "Avg connection time:\t%ss\n", formatFloat(s.AvgCt))
	for _, p := range s.Percentiles {
		fmt.Fprintf(tw, "%s:\t%ss\n", p.Label, formatFloat(p.Seconds))
	}
	for _, e := range s.Errors {
		fmt.Fprintf(tw, "Error %s:\t%d\n", e.Code, e.Count)
	}
	return tw.Flush()
}

func writeHistoryText(w io.Writer, rows []report.HistoryRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No history")
		return err
	}
	tw := newTable(w)
	header := []string{"RUN", "END TIME", "REQ/SEC", "AVG RT", "AVG LT", "AVG CT"}
	for _, p := range rows[0].Percentiles {
		header = append(header, "P"+p.Label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		cols := []string{r.ID, orDash(r.EndTime), r.ThroughputPerSecond.String(),
			formatFloat(r.AvgRt), formatFloat(r.AvgLt), formatFloat(r.AvgCt)}
		for _, p := range r.Percentiles {
			cols = append(cols, formatFloat(p.Seconds))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return report.Unavailable
	}
	return s
}

func formatFloat(v float64) string {
	return report.Number(v).String()
}
