package report

import (
	"sort"

	"github.com/studiowebux/dlts/internal/types"
)

// SortHistory returns the entries newest first by endTime.
// Timestamps are compared as strings; a missing endTime sorts last.
func SortHistory(entries []types.HistoryEntry) []types.HistoryEntry {
	sorted := make([]types.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EndTime > sorted[j].EndTime
	})
	return sorted
}

// SortRecords returns the records newest first by startTime, using the same rule as SortHistory
func SortRecords(records []types.TestRecord) []types.TestRecord {
	sorted := make([]types.TestRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime > sorted[j].StartTime
	})
	return sorted
}

// HistoryRow is one line of the run history table
type HistoryRow struct {
	ID                  string          `json:"id"`
	EndTime             string          `json:"endTime"`
	ThroughputPerSecond Figure          `json:"throughputPerSecond"`
	AvgRt               float64         `json:"avg_rt"`
	AvgLt               float64         `json:"avg_lt"`
	AvgCt               float64         `json:"avg_ct"`
	Percentiles         []PercentileRow `json:"percentiles"`
}

// HistoryRows builds the history table in display order.
// Each row uses its own run's testDuration; there is no fallback.
func HistoryRows(entries []types.HistoryEntry) []HistoryRow {
	sorted := SortHistory(entries)
	rows := make([]HistoryRow, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, HistoryRow{
			ID:                  e.ID,
			EndTime:             e.EndTime,
			ThroughputPerSecond: ThroughputPerSecond(e.Results.Throughput, e.Results.TestDuration),
			AvgRt:               e.Results.AvgRt,
			AvgLt:               e.Results.AvgLt,
			AvgCt:               e.Results.AvgCt,
			Percentiles:         PercentileTable(e.Results),
		})
	}
	return rows
}
