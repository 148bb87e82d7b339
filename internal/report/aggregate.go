package report

import (
	"math"

	"github.com/studiowebux/dlts/internal/types"
)

// bandwidthUnits is the scaling ladder, capped at Gbps
var bandwidthUnits = []string{"Bps", "Kbps", "Mbps", "Gbps"}

// ThroughputPerSecond returns requests per second rounded to two decimals,
// or an unavailable figure when the duration is not positive
func ThroughputPerSecond(throughput, durationSeconds float64) Figure {
	if !(durationSeconds > 0) || math.IsNaN(throughput) {
		return Figure{}
	}
	return Number(hundredths(throughput * 100 / durationSeconds))
}

// Bandwidth formats the average transfer rate of a run, e.g. "122.07 Kbps".
// The rate is scaled by 1024 per step and stops at Gbps even when larger.
func Bandwidth(totalBytes, durationSeconds float64) string {
	if math.IsNaN(totalBytes) || math.IsNaN(durationSeconds) || durationSeconds == 0 {
		return Unavailable
	}

	rate := hundredths(totalBytes * 100 / durationSeconds / 8)
	unit := 0
	for rate > 1024 {
		if unit == len(bandwidthUnits)-1 {
			break
		}
		unit++
		rate = hundredths(rate * 100 / 1024)
	}
	return formatNumber(rate) + " " + bandwidthUnits[unit]
}

// PercentileRow is one line of the response time table
type PercentileRow struct {
	Label   string  `json:"label"`
	Seconds float64 `json:"seconds"`
}

// PercentileTable lists the report's percentiles from 100% down to 0%.
// Values are copied unchanged.
func PercentileTable(r types.ResultsReport) []PercentileRow {
	return []PercentileRow{
		{Label: "100%", Seconds: r.P100},
		{Label: "99.9%", Seconds: r.P99_9},
		{Label: "99%", Seconds: r.P99},
		{Label: "95%", Seconds: r.P95},
		{Label: "90%", Seconds: r.P90},
		{Label: "50%", Seconds: r.P50},
		{Label: "0%", Seconds: r.P0},
	}
}

// ErrorTally returns a copy of the error counts, or nil when there are none
func ErrorTally(rc []types.ErrorCount) []types.ErrorCount {
	if len(rc) == 0 {
		return nil
	}
	out := make([]types.ErrorCount, len(rc))
	copy(out, rc)
	return out
}

// EffectiveDuration returns reported unless it is NaN or zero, in which case fallback is used
func EffectiveDuration(reported, fallback float64) float64 {
	if math.IsNaN(reported) || reported == 0 {
		return fallback
	}
	return reported
}
