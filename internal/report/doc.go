/*
Package report derives display figures from load test results.

# Figures

All functions are pure and never fail. A figure that cannot be computed,
such as throughput per second over a zero duration, is reported as the
"-" sentinel instead of a number:

	ThroughputPerSecond(500, 100) // 5
	ThroughputPerSecond(500, 0)   // -
	Bandwidth(8000, 10)           // 100 Bps
	Bandwidth(1000000, 1)         // 122.07 Kbps

Bandwidth scales by 1024 through Bps, Kbps, Mbps and Gbps, rounding half up
to two decimals at each step. It never goes past Gbps.

# Breakdowns

Summarize derives every figure of one ResultsReport. Breakdown adds one
Summary per label for script tests. HistoryRows builds the run history
table, newest first, with each row using its own run's duration.

# Collection

Collector turns raw samples into a ResultsReport for backends that do not
aggregate themselves. ReadJTL reads samples from a JMeter CSV results file.
*/
package report
