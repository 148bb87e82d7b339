package report

import (
	"math"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

// SummaryLabel names the whole-run summary in a Breakdown
const SummaryLabel = "summary"

// Summary holds every derived figure of one report
type Summary struct {
	Label               string             `json:"label"`
	Duration            float64            `json:"duration"`
	Throughput          float64            `json:"throughput"`
	Succ                float64            `json:"succ"`
	Fail                float64            `json:"fail"`
	ThroughputPerSecond Figure             `json:"throughputPerSecond"`
	Bandwidth           string             `json:"bandwidth"`
	AvgRt               float64            `json:"avg_rt"`
	AvgLt               float64            `json:"avg_lt"`
	AvgCt               float64            `json:"avg_ct"`
	Percentiles         []PercentileRow    `json:"percentiles"`
	Errors              []types.ErrorCount `json:"errors,omitempty"`
}

// Summarize derives the figures of one report. Fractional reported durations
// are truncated to whole seconds before the fallback rule applies.
func Summarize(r types.ResultsReport, fallbackSeconds float64) Summary {
	d := EffectiveDuration(math.Trunc(r.TestDuration), fallbackSeconds)
	return Summary{
		Label:               r.Label,
		Duration:            d,
		Throughput:          r.Throughput,
		Succ:                r.Succ,
		Fail:                r.Fail,
		ThroughputPerSecond: ThroughputPerSecond(r.Throughput, d),
		Bandwidth:           Bandwidth(r.Bytes, d),
		AvgRt:               r.AvgRt,
		AvgLt:               r.AvgLt,
		AvgCt:               r.AvgCt,
		Percentiles:         PercentileTable(r),
		Errors:              ErrorTally(r.RC),
	}
}

// Breakdown summarizes a record's current results: the whole run first, then
// one entry per label. Simple tests only get the whole-run summary. Labels
// share the run's duration.
func Breakdown(rec types.TestRecord, fallbackSeconds float64) []Summary {
	if rec.Results == nil {
		return nil
	}

	whole := Summarize(*rec.Results, fallbackSeconds)
	whole.Label = SummaryLabel
	out := []Summary{whole}
	if rec.IsSimple() {
		return out
	}

	for _, l := range rec.Results.Labels {
		label := l
		label.TestDuration = rec.Results.TestDuration
		out = append(out, Summarize(label, fallbackSeconds))
	}
	return out
}

// FallbackDuration is the planned run time of a record, ramp-up plus hold-for.
// Legacy records with loose duration strings are summed permissively.
func FallbackDuration(rec types.TestRecord) float64 {
	exec := rec.Execution()
	return float64(duration.SumSeconds([]string{exec.RampUp, exec.HoldFor}))
}
