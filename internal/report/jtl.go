package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// required JTL columns; Latency and Connect are optional
var jtlRequired = []string{"elapsed", "label", "responseCode", "success", "bytes"}

// ReadJTL parses a CSV results file with a header row, as written by JMeter.
// Times in the file are milliseconds and are converted to seconds.
func ReadJTL(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("results file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range jtlRequired {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("results file has no %s column", name)
		}
	}

	var samples []Sample
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		elapsed, err := strconv.ParseFloat(field("elapsed"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid elapsed %q", line, field("elapsed"))
		}
		bytes, err := strconv.ParseInt(field("bytes"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid bytes %q", line, field("bytes"))
		}

		samples = append(samples, Sample{
			Label:   field("label"),
			Elapsed: elapsed / 1000,
			Latency: optionalMillis(field("Latency")),
			Connect: optionalMillis(field("Connect")),
			Bytes:   bytes,
			Success: strings.EqualFold(field("success"), "true"),
			Code:    field("responseCode"),
		})
	}
	return samples, nil
}

func optionalMillis(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v / 1000
}
