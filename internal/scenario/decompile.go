package scenario

import (
	"encoding/json"
	"strconv"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

// Decompile rebuilds the edit form of a stored record
func Decompile(rec types.TestRecord) FormValues {
	exec := rec.Execution()
	rampUp, rampUpUnit := duration.Split(exec.RampUp)
	holdFor, holdForUnit := duration.Split(exec.HoldFor)

	form := FormValues{
		TestName:        rec.TestName,
		TestDescription: rec.TestDescription,
		TaskCount:       rec.TaskCount,
		Concurrency:     exec.Concurrency,
		RampUp:          atoiOrZero(rampUp),
		RampUpUnit:      rampUpUnit,
		HoldFor:         atoiOrZero(holdFor),
		HoldForUnit:     holdForUnit,
		TestType:        rec.TestType,
	}

	if rec.IsSimple() {
		form.TestType = types.TestTypeSimple
		if req, ok := inlineRequestOf(rec); ok {
			form.Endpoint = req.URL
			form.Method = req.Method
			form.Body = prettyJSON(req.Body)
			form.Headers = prettyJSON(req.Headers)
		}
		return form
	}

	form.FileType = rec.FileType
	if form.FileType == types.FileTypeNone {
		form.FileType = types.FileTypeScript
	}
	return form
}

// Restart rebuilds the submission of an existing record so it can run again
// without re-uploading its script
func Restart(rec types.TestRecord) (types.Submission, error) {
	if err := rec.TestScenario.Validate(); err != nil {
		return types.Submission{}, err
	}

	exec := rec.Execution()
	sub := types.Submission{
		TestID:          rec.TestID,
		TestName:        rec.TestName,
		TestDescription: rec.TestDescription,
		TaskCount:       rec.TaskCount,
		TestType:        rec.TestType,
		TestScenario: types.TestScenario{
			Execution: []types.Execution{{
				Concurrency: exec.Concurrency,
				RampUp:      exec.RampUp,
				HoldFor:     exec.HoldFor,
				Scenario:    rec.TestName,
			}},
		},
	}

	if rec.IsSimple() {
		sub.TestType = types.TestTypeSimple
		req, ok := inlineRequestOf(rec)
		if !ok {
			return types.Submission{}, &types.ValidationError{Field: "testScenario", Message: "simple test has no inline request"}
		}
		sub.TestScenario.Scenarios = map[string]types.Scenario{
			rec.TestName: types.InlineRequestScenario{Requests: []types.InlineRequest{req}},
		}
		return sub, nil
	}

	sub.FileType = rec.FileType
	sub.TestScenario.Scenarios = map[string]types.Scenario{
		rec.TestName: types.ScriptScenario{Script: ScriptName(rec.TestID, types.FileTypeScript)},
	}
	return sub, nil
}

func inlineRequestOf(rec types.TestRecord) (types.InlineRequest, bool) {
	entry, ok := rec.TestScenario.Scenarios[rec.TestName]
	if !ok {
		return types.InlineRequest{}, false
	}
	inline, ok := entry.(types.InlineRequestScenario)
	if !ok {
		return types.InlineRequest{}, false
	}
	return inline.Request()
}

// prettyJSON indents a stored body or headers value. A nil value renders as
// null so that recompiling the form keeps it nil.
func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
