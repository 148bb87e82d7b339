package report

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/studiowebux/dlts/internal/types"
)

// Sample is one request outcome reported by a load generator
type Sample struct {
	Label   string
	Elapsed float64 // response time in seconds
	Latency float64 // time to first byte in seconds
	Connect float64 // connect time in seconds
	Bytes   int64
	Success bool
	Code    string
}

// labelStats accumulates the samples of one label
type labelStats struct {
	label      string
	succ       int
	fail       int
	bytes      int64
	elapsed    []float64
	latencySum float64
	connectSum float64
	codes      map[string]int
}

func newLabelStats(label string) *labelStats {
	return &labelStats{
		label:   label,
		elapsed: make([]float64, 0, 1000),
		codes:   make(map[string]int),
	}
}

func (s *labelStats) add(sample Sample) {
	s.elapsed = append(s.elapsed, sample.Elapsed)
	s.latencySum += sample.Latency
	s.connectSum += sample.Connect
	s.bytes += sample.Bytes

	if sample.Success {
		s.succ++
		return
	}
	s.fail++
	s.codes[sample.Code]++
}

func (s *labelStats) report(testDuration float64) types.ResultsReport {
	n := len(s.elapsed)
	r := types.ResultsReport{
		Label:        s.label,
		Throughput:   float64(n),
		Succ:         float64(s.succ),
		Fail:         float64(s.fail),
		Bytes:        float64(s.bytes),
		TestDuration: testDuration,
	}
	if n == 0 {
		return r
	}

	data := stats.Float64Data(s.elapsed)
	r.AvgRt, _ = stats.Mean(data)
	r.AvgLt = s.latencySum / float64(n)
	r.AvgCt = s.connectSum / float64(n)
	r.P100, _ = stats.Max(data)
	r.P0, _ = stats.Min(data)
	r.P99_9 = percentile(data, 99.9, r.P0)
	r.P99 = percentile(data, 99, r.P0)
	r.P95 = percentile(data, 95, r.P0)
	r.P90 = percentile(data, 90, r.P0)
	r.P50 = percentile(data, 50, r.P0)

	for code, count := range s.codes {
		r.RC = append(r.RC, types.ErrorCount{Code: code, Count: count})
	}
	sort.Slice(r.RC, func(i, j int) bool {
		return r.RC[i].Code < r.RC[j].Code
	})
	return r
}

// percentile returns the pct percentile, or floor when the sample is too small to have one
func percentile(data stats.Float64Data, pct, floor float64) float64 {
	v, err := stats.Percentile(data, pct)
	if err != nil {
		return floor
	}
	return v
}

// Collector builds a ResultsReport from raw samples, overall and per label
type Collector struct {
	total  *labelStats
	labels map[string]*labelStats
	order  []string
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		total:  newLabelStats(""),
		labels: make(map[string]*labelStats),
	}
}

// Add records one sample
func (c *Collector) Add(s Sample) {
	c.total.add(s)

	ls, ok := c.labels[s.Label]
	if !ok {
		ls = newLabelStats(s.Label)
		c.labels[s.Label] = ls
		c.order = append(c.order, s.Label)
	}
	ls.add(s)
}

// Count returns the number of samples recorded so far
func (c *Collector) Count() int {
	return len(c.total.elapsed)
}

// Report returns the aggregated results. Labels keep the order in which they were first seen.
func (c *Collector) Report(testDuration float64) types.ResultsReport {
	r := c.total.report(testDuration)
	for _, name := range c.order {
		r.Labels = append(r.Labels, c.labels[name].report(testDuration))
	}
	return r
}
