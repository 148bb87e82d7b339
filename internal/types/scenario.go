package types

import (
	"encoding/json"
	"fmt"
)

// TestScenario is the canonical executable description of a load test
type TestScenario struct {
	Execution []Execution         `json:"execution"`
	Scenarios map[string]Scenario `json:"scenarios"`
}

// Execution is the load profile applied to one scenario
type Execution struct {
	Concurrency int    `json:"concurrency"`
	RampUp      string `json:"ramp-up"`
	HoldFor     string `json:"hold-for"`
	Scenario    string `json:"scenario"`
}

// Scenario is either an InlineRequestScenario or a ScriptScenario
type Scenario interface {
	scenarioKind() string
}

// InlineRequestScenario drives a single HTTP request described inline
type InlineRequestScenario struct {
	Requests []InlineRequest `json:"requests"`
}

func (InlineRequestScenario) scenarioKind() string { return "requests" }

// Request returns the first request, which is the only one the compiler emits
func (s InlineRequestScenario) Request() (InlineRequest, bool) {
	if len(s.Requests) == 0 {
		return InlineRequest{}, false
	}
	return s.Requests[0], true
}

// InlineRequest is the target of a simple test
type InlineRequest struct {
	URL     string `json:"url"`
	Method  string `json:"method"`
	Body    any    `json:"body"`
	Headers any    `json:"headers"`
}

// ScriptScenario references an uploaded JMeter script or archive
type ScriptScenario struct {
	Script string `json:"script"`
}

func (ScriptScenario) scenarioKind() string { return "script" }

// Name returns the scenario name referenced by the first execution entry
func (s TestScenario) Name() string {
	if len(s.Execution) == 0 {
		return ""
	}
	return s.Execution[0].Scenario
}

// Entry returns the single scenario entry
func (s TestScenario) Entry() (Scenario, bool) {
	sc, ok := s.Scenarios[s.Name()]
	return sc, ok
}

// Validate checks that exactly one scenario exists and that execution[0] names it
func (s TestScenario) Validate() error {
	if len(s.Execution) != 1 {
		return &ValidationError{Field: "execution", Message: fmt.Sprintf("expected exactly one execution entry, got %d", len(s.Execution))}
	}
	if len(s.Scenarios) != 1 {
		return &ValidationError{Field: "scenarios", Message: fmt.Sprintf("expected exactly one scenario, got %d", len(s.Scenarios))}
	}
	if _, ok := s.Scenarios[s.Execution[0].Scenario]; !ok {
		return &ValidationError{Field: "scenarios", Message: fmt.Sprintf("no scenario named %q", s.Execution[0].Scenario)}
	}
	return nil
}

// UnmarshalJSON decodes each scenario entry into its concrete kind
func (s *TestScenario) UnmarshalJSON(data []byte) error {
	var raw struct {
		Execution []Execution                `json:"execution"`
		Scenarios map[string]json.RawMessage `json:"scenarios"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Execution = raw.Execution
	s.Scenarios = make(map[string]Scenario, len(raw.Scenarios))
	for name, body := range raw.Scenarios {
		sc, err := decodeScenario(body)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", name, err)
		}
		s.Scenarios[name] = sc
	}
	return nil
}

func decodeScenario(body json.RawMessage) (Scenario, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["script"]; ok {
		var sc ScriptScenario
		if err := json.Unmarshal(body, &sc); err != nil {
			return nil, err
		}
		return sc, nil
	}
	var sc InlineRequestScenario
	if err := json.Unmarshal(body, &sc); err != nil {
		return nil, err
	}
	return sc, nil
}
