package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Unavailable is the text shown for a figure that cannot be computed
const Unavailable = "-"

// Figure is a number or the unavailable sentinel.
// The zero value is unavailable, which keeps it distinct from a computed 0.
type Figure struct {
	value float64
	ok    bool
}

// Number wraps a computed value
func Number(v float64) Figure {
	return Figure{value: v, ok: true}
}

// Value returns the number and whether it is available
func (f Figure) Value() (float64, bool) {
	return f.value, f.ok
}

// Available reports whether the figure holds a number
func (f Figure) Available() bool {
	return f.ok
}

func (f Figure) String() string {
	if !f.ok {
		return Unavailable
	}
	return formatNumber(f.value)
}

// MarshalJSON encodes a number, or the string "-" when unavailable
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return json.Marshal(Unavailable)
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON accepts a number or the "-" sentinel
func (f *Figure) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != Unavailable {
			return fmt.Errorf("invalid figure %q", s)
		}
		*f = Figure{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Number(v)
	return nil
}

// hundredths rounds a value already scaled by 100 half up and scales it back
func hundredths(scaled float64) float64 {
	return math.Floor(scaled+0.5) / 100
}

// formatNumber prints the shortest decimal form, so 100 renders as "100" and 122.07 as "122.07"
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
