package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestScenario_UnmarshalKinds(t *testing.T) {
	data := []byte(`{
		"execution": [{"concurrency": 5, "ramp-up": "1m", "hold-for": "30s", "scenario": "checkout"}],
		"scenarios": {"checkout": {"requests": [{"url": "https://example.com", "method": "POST", "body": {"a": 1}, "headers": {}}]}}
	}`)

	var sc TestScenario
	require.NoError(t, json.Unmarshal(data, &sc))
	require.NoError(t, sc.Validate())

	entry, ok := sc.Entry()
	require.True(t, ok)
	inline, ok := entry.(InlineRequestScenario)
	require.True(t, ok, "expected inline request scenario, got %T", entry)

	req, ok := inline.Request()
	require.True(t, ok)
	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, map[string]any{"a": float64(1)}, req.Body)

	script := []byte(`{
		"execution": [{"concurrency": 1, "ramp-up": "0s", "hold-for": "1m", "scenario": "jmx"}],
		"scenarios": {"jmx": {"script": "abc.jmx"}}
	}`)
	require.NoError(t, json.Unmarshal(script, &sc))
	entry, ok = sc.Entry()
	require.True(t, ok)
	assert.Equal(t, ScriptScenario{Script: "abc.jmx"}, entry)
}

func TestTestScenario_MarshalKeepsWireKeys(t *testing.T) {
	sc := TestScenario{
		Execution: []Execution{{Concurrency: 2, RampUp: "5m", HoldFor: "10m", Scenario: "s"}},
		Scenarios: map[string]Scenario{"s": ScriptScenario{Script: "id.jmx"}},
	}

	data, err := json.Marshal(sc)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"execution":[{"concurrency":2,"ramp-up":"5m","hold-for":"10m","scenario":"s"}],"scenarios":{"s":{"script":"id.jmx"}}}`,
		string(data))
}

func TestTestScenario_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sc      TestScenario
		wantErr bool
	}{
		{
			name: "valid",
			sc: TestScenario{
				Execution: []Execution{{Scenario: "a"}},
				Scenarios: map[string]Scenario{"a": ScriptScenario{}},
			},
		},
		{
			name: "name mismatch",
			sc: TestScenario{
				Execution: []Execution{{Scenario: "a"}},
				Scenarios: map[string]Scenario{"b": ScriptScenario{}},
			},
			wantErr: true,
		},
		{
			name: "two scenarios",
			sc: TestScenario{
				Execution: []Execution{{Scenario: "a"}},
				Scenarios: map[string]Scenario{"a": ScriptScenario{}, "b": ScriptScenario{}},
			},
			wantErr: true,
		},
		{
			name:    "no execution",
			sc:      TestScenario{Scenarios: map[string]Scenario{"a": ScriptScenario{}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sc.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestErrorCount_UnmarshalCode(t *testing.T) {
	var rc []ErrorCount
	require.NoError(t, json.Unmarshal([]byte(`[{"code":"404","count":3},{"code":500,"count":1},{"count":2}]`), &rc))
	assert.Equal(t, []ErrorCount{{Code: "404", Count: 3}, {Code: "500", Count: 1}, {Code: "", Count: 2}}, rc)
}

func TestResultsReport_PercentilesMonotonic(t *testing.T) {
	r := ResultsReport{P100: 2, P99_9: 1.5, P99: 1.2, P95: 1, P90: 0.8, P50: 0.3, P0: 0.1}
	assert.True(t, r.PercentilesMonotonic())

	r.P50 = 0.9
	assert.False(t, r.PercentilesMonotonic())
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusCreated, Status("").Normalize())
	assert.Equal(t, StatusRunning, StatusRunning.Normalize())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusCreated.IsTerminal())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "taskCount must be between 1 and 500, got 501",
		(&OutOfRangeError{Field: "taskCount", Value: 501, Min: 1, Max: 500}).Error())
	assert.Equal(t, "file big.jmx is 51MiB, exceeds limit of 50MiB",
		(&FileTooLargeError{Name: "big.jmx", Size: 51 << 20, Limit: 50 << 20}).Error())

	inner := errors.New("boom")
	terr := &TransportError{Op: "submit", StatusCode: 502, Err: inner}
	assert.ErrorIs(t, terr, inner)
	assert.Equal(t, "submit failed with status 502: boom", terr.Error())
}
