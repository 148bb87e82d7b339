package scenario

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

func recordFrom(t *testing.T, form FormValues, id string) types.TestRecord {
	t.Helper()
	out, err := NewCompiler(WithIDGenerator(fixedID(id))).Compile(form, "")
	require.NoError(t, err)
	sub := out.Submission
	return types.TestRecord{
		TestID:          sub.TestID,
		TestName:        sub.TestName,
		TestDescription: sub.TestDescription,
		TaskCount:       sub.TaskCount,
		TestScenario:    sub.TestScenario,
		TestType:        sub.TestType,
		FileType:        sub.FileType,
		Status:          types.StatusComplete,
	}
}

func TestDecompile_SimpleRoundTrip(t *testing.T) {
	form := simpleForm()
	form.Headers = `{"X-Trace": "1"}`
	form.Body = `{"sku": "a1"}`
	rec := recordFrom(t, form, "rt1")

	got := Decompile(rec)
	assert.Equal(t, form.TestName, got.TestName)
	assert.Equal(t, form.TaskCount, got.TaskCount)
	assert.Equal(t, form.Concurrency, got.Concurrency)
	assert.Equal(t, 1, got.RampUp)
	assert.Equal(t, duration.Minutes, got.RampUpUnit)
	assert.Equal(t, 30, got.HoldFor)
	assert.Equal(t, duration.Seconds, got.HoldForUnit)
	assert.Equal(t, form.Endpoint, got.Endpoint)
	assert.Equal(t, form.Method, got.Method)
	assert.JSONEq(t, form.Headers, got.Headers)
	assert.JSONEq(t, form.Body, got.Body)
	assert.Equal(t, "{\n  \"sku\": \"a1\"\n}", got.Body)

	// recompiling the decompiled form under the same id yields the same payload
	again, err := NewCompiler().Compile(got, rec.TestID)
	require.NoError(t, err)
	assert.Equal(t, rec.TestScenario, again.Submission.TestScenario)
}

func TestDecompile_LegacyEmptyTestType(t *testing.T) {
	rec := recordFrom(t, simpleForm(), "old1")
	rec.TestType = ""

	got := Decompile(rec)
	assert.Equal(t, types.TestTypeSimple, got.TestType)
	assert.Equal(t, "{}", got.Headers)
}

func TestDecompile_NullBodyRoundTrip(t *testing.T) {
	form := simpleForm()
	form.Body = "null"
	rec := recordFrom(t, form, "nb1")

	req, ok := inlineRequestOf(rec)
	require.True(t, ok)
	require.Nil(t, req.Body)

	got := Decompile(rec)
	assert.Equal(t, "null", got.Body)

	again, err := NewCompiler().Compile(got, rec.TestID)
	require.NoError(t, err)
	assert.Equal(t, rec.TestScenario, again.Submission.TestScenario)
	req, ok = inlineRequestOf(types.TestRecord{TestName: rec.TestName, TestScenario: again.Submission.TestScenario})
	require.True(t, ok)
	assert.Nil(t, req.Body)
}

func TestDecompile_ScriptDefaultsFileType(t *testing.T) {
	rec := recordFrom(t, scriptForm(), "s1")
	rec.FileType = types.FileTypeNone

	got := Decompile(rec)
	assert.Equal(t, types.TestTypeJMeter, got.TestType)
	assert.Equal(t, types.FileTypeScript, got.FileType)
	assert.Empty(t, got.Endpoint)
}

func TestRestart(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		rec := recordFrom(t, simpleForm(), "r1")
		sub, err := Restart(rec)
		require.NoError(t, err)
		assert.Equal(t, rec.TestScenario, sub.TestScenario)
		assert.Equal(t, "r1", sub.TestID)
	})

	t.Run("zip script keeps jmx entry", func(t *testing.T) {
		form := scriptForm()
		form.FileType = types.FileTypeZip
		rec := recordFrom(t, form, "z1")

		sub, err := Restart(rec)
		require.NoError(t, err)
		assert.Equal(t, types.FileTypeZip, sub.FileType)
		entry, _ := sub.TestScenario.Entry()
		assert.Equal(t, types.ScriptScenario{Script: "z1.jmx"}, entry)
	})

	t.Run("broken scenario", func(t *testing.T) {
		rec := recordFrom(t, simpleForm(), "b1")
		rec.TestScenario.Scenarios = map[string]types.Scenario{"other": types.ScriptScenario{Script: "b1.jmx"}}

		_, err := Restart(rec)
		var verr *types.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("simple without inline request", func(t *testing.T) {
		rec := recordFrom(t, simpleForm(), "b2")
		rec.TestScenario.Scenarios = map[string]types.Scenario{rec.TestName: types.ScriptScenario{Script: "b2.jmx"}}

		_, err := Restart(rec)
		var verr *types.ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "plan.jmx", want: "jmx"},
		{name: "bundle.tar.zip", want: "zip"},
		{name: "noext", want: "noext"},
		{name: "trailing.", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScriptFile{Name: tt.name}.Extension())
		})
	}
}

func TestCheckFile_Limit(t *testing.T) {
	assert.NoError(t, CheckFile(ScriptFile{Name: "a.jmx", Size: MaxFileSize}, MaxFileSize))
	assert.Error(t, CheckFile(ScriptFile{Name: "a.jmx", Size: MaxFileSize + 1}, MaxFileSize))
	assert.NoError(t, CheckFile(ScriptFile{Name: "a.zip", Content: []byte("PK")}, MaxFileSize))
}
