// Package duration converts the "<integer><unit>" strings used for ramp-up
// and hold-for into second counts.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/studiowebux/dlts/internal/types"
)

// Unit is the single-letter suffix of a duration string
type Unit string

const (
	Seconds Unit = "s"
	Minutes Unit = "m"
)

var pattern = regexp.MustCompile(`^([0-9]+)([sm])$`)

// Seconds returns how many seconds one unit is worth
func (u Unit) Seconds() int {
	if u == Minutes {
		return 60
	}
	return 1
}

// Valid returns true for s and m
func (u Unit) Valid() bool {
	return u == Seconds || u == Minutes
}

// Parse converts a strict "<integer><s|m>" string into seconds
func Parse(raw string) (int, error) {
	if raw == "" {
		return 0, &types.ValidationError{Field: "duration", Message: "duration is required"}
	}

	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, &types.ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("invalid duration %q, expected <integer><s|m>", raw),
		}
	}

	magnitude, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &types.ValidationError{Field: "duration", Message: fmt.Sprintf("invalid magnitude in %q: %v", raw, err)}
	}
	return magnitude * Unit(m[2]).Seconds(), nil
}

// Format concatenates magnitude and unit without any conversion
func Format(magnitude int, unit Unit) string {
	return strconv.Itoa(magnitude) + string(unit)
}

// Split separates the magnitude from the trailing unit character
func Split(raw string) (string, Unit) {
	if raw == "" {
		return "", ""
	}
	return raw[:len(raw)-1], Unit(raw[len(raw)-1:])
}

// SumSeconds adds up durations using the legacy rule: a trailing "m" means
// minutes and any other trailing character means seconds. Items whose
// magnitude cannot be read contribute nothing.
func SumSeconds(items []string) int {
	total := 0
	for _, item := range items {
		magnitude, unit := Split(strings.TrimSpace(item))
		n, err := leadingInt(magnitude)
		if err != nil {
			continue
		}
		if unit == Minutes {
			total += n * 60
		} else {
			total += n
		}
	}
	return total
}

// SumSecondsStrict adds up durations, failing on the first malformed item
func SumSecondsStrict(items []string) (int, error) {
	total := 0
	for _, item := range items {
		s, err := Parse(item)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}

// leadingInt reads the leading decimal digits of s, like parseInt does
func leadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strconv.Atoi(s[:end])
}
