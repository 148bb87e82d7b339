package scenario

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

func fixedID(id string) IDGenerator {
	return func() string { return id }
}

func simpleForm() FormValues {
	return FormValues{
		TestName:        "checkout",
		TestDescription: "checkout flow",
		TaskCount:       3,
		Concurrency:     20,
		RampUp:          1,
		RampUpUnit:      duration.Minutes,
		HoldFor:         30,
		HoldForUnit:     duration.Seconds,
		Endpoint:        "https://shop.example.com/checkout",
		Method:          "POST",
		TestType:        types.TestTypeSimple,
	}
}

func scriptForm() FormValues {
	f := simpleForm()
	f.TestType = types.TestTypeJMeter
	f.Endpoint = ""
	f.Method = ""
	return f
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("plan.jmx")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><jmeterTestPlan/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCompile_SimpleDefaultsBlankJSON(t *testing.T) {
	c := NewCompiler(WithIDGenerator(fixedID("abc123")))

	out, err := c.Compile(simpleForm(), "")
	require.NoError(t, err)
	assert.Nil(t, out.Upload)

	sub := out.Submission
	assert.Equal(t, "abc123", sub.TestID)
	assert.Equal(t, types.TestTypeSimple, sub.TestType)
	assert.Equal(t, types.FileTypeNone, sub.FileType)
	assert.Equal(t, 3, sub.TaskCount)
	require.NoError(t, sub.TestScenario.Validate())

	exec := sub.TestScenario.Execution[0]
	assert.Equal(t, types.Execution{Concurrency: 20, RampUp: "1m", HoldFor: "30s", Scenario: "checkout"}, exec)

	entry, ok := sub.TestScenario.Entry()
	require.True(t, ok)
	req, ok := entry.(types.InlineRequestScenario).Request()
	require.True(t, ok)
	assert.Equal(t, map[string]any{}, req.Headers)
	assert.Equal(t, map[string]any{}, req.Body)
	assert.Equal(t, "https://shop.example.com/checkout", req.URL)
	assert.Equal(t, "POST", req.Method)
}

func TestCompile_SimpleParsesJSON(t *testing.T) {
	form := simpleForm()
	form.Headers = ` {"Content-Type": "application/json"} `
	form.Body = `{"items": [1, 2]}`

	out, err := NewCompiler().Compile(form, "")
	require.NoError(t, err)

	entry, _ := out.Submission.TestScenario.Entry()
	req, _ := entry.(types.InlineRequestScenario).Request()
	assert.Equal(t, map[string]any{"Content-Type": "application/json"}, req.Headers)
	assert.Equal(t, map[string]any{"items": []any{float64(1), float64(2)}}, req.Body)
	assert.Len(t, out.Submission.TestID, 10)
}

func TestCompile_MalformedJSON(t *testing.T) {
	tests := []struct {
		name    string
		headers string
		body    string
		field   string
	}{
		{name: "headers", headers: "{not json", field: "headers"},
		{name: "body", body: `{"a":}`, field: "body"},
		{name: "headers checked first", headers: "nope", body: "nope", field: "headers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := simpleForm()
			form.Headers = tt.headers
			form.Body = tt.body

			_, err := NewCompiler().Compile(form, "")
			var jerr *types.MalformedJSONError
			require.True(t, errors.As(err, &jerr), "expected MalformedJSONError, got %v", err)
			assert.Equal(t, tt.field, jerr.Field)
		})
	}
}

func TestCompile_Bounds(t *testing.T) {
	tests := []struct {
		name        string
		taskCount   int
		concurrency int
		field       string
	}{
		{name: "task count zero", taskCount: 0, concurrency: 1, field: "taskCount"},
		{name: "task count above max", taskCount: 501, concurrency: 1, field: "taskCount"},
		{name: "concurrency zero", taskCount: 1, concurrency: 0, field: "concurrency"},
		{name: "concurrency above max", taskCount: 1, concurrency: 201, field: "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := simpleForm()
			form.TaskCount = tt.taskCount
			form.Concurrency = tt.concurrency

			_, err := NewCompiler().Compile(form, "")
			var rerr *types.OutOfRangeError
			require.True(t, errors.As(err, &rerr), "expected OutOfRangeError, got %v", err)
			assert.Equal(t, tt.field, rerr.Field)
		})
	}

	form := simpleForm()
	form.TaskCount = MaxTaskCount
	form.Concurrency = MaxConcurrency
	_, err := NewCompiler().Compile(form, "")
	assert.NoError(t, err)
}

func TestCompile_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*FormValues)
		field string
	}{
		{name: "name", edit: func(f *FormValues) { f.TestName = "" }, field: "testName"},
		{name: "description", edit: func(f *FormValues) { f.TestDescription = "" }, field: "testDescription"},
		{name: "unit", edit: func(f *FormValues) { f.HoldForUnit = "h" }, field: "holdForUnit"},
		{name: "endpoint", edit: func(f *FormValues) { f.Endpoint = " " }, field: "endpoint"},
		{name: "method", edit: func(f *FormValues) { f.Method = "" }, field: "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := simpleForm()
			tt.edit(&form)

			_, err := NewCompiler().Compile(form, "")
			var verr *types.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCompile_ScriptFileChecks(t *testing.T) {
	form := scriptForm()
	form.File = &ScriptFile{Name: "plan.jmx", Size: 51 * 1024 * 1024}
	_, err := NewCompiler().Compile(form, "")
	var big *types.FileTooLargeError
	require.True(t, errors.As(err, &big), "expected FileTooLargeError, got %v", err)

	form.File = &ScriptFile{Name: "plan.txt", Size: 10}
	_, err = NewCompiler().Compile(form, "")
	var ext *types.UnsupportedExtensionError
	require.True(t, errors.As(err, &ext), "expected UnsupportedExtensionError, got %v", err)
	assert.Equal(t, "txt", ext.Extension)

	form.File = &ScriptFile{Name: "plan.JMX", Size: 10}
	_, err = NewCompiler().Compile(form, "")
	assert.True(t, errors.As(err, &ext), "extension match is case-sensitive")
}

func TestCompile_ScriptWithoutFile(t *testing.T) {
	out, err := NewCompiler(WithIDGenerator(fixedID("x7TL9Gup"))).Compile(scriptForm(), "")
	require.NoError(t, err)
	assert.Nil(t, out.Upload)
	assert.Equal(t, types.FileTypeScript, out.Submission.FileType)

	entry, ok := out.Submission.TestScenario.Entry()
	require.True(t, ok)
	assert.Equal(t, types.ScriptScenario{Script: "x7TL9Gup.jmx"}, entry)
}

func TestCompile_ScriptFileTypeSelection(t *testing.T) {
	tests := []struct {
		name     string
		file     ScriptFile
		fileType types.FileType
		path     string
	}{
		{
			name:     "declared zip",
			file:     ScriptFile{Name: "bundle.zip", Size: 10, ContentType: "application/x-zip-compressed"},
			fileType: types.FileTypeZip,
			path:     "test-scenarios/jmeter/id1.zip",
		},
		{
			name:     "declared xml",
			file:     ScriptFile{Name: "plan.jmx", Size: 10, ContentType: "application/xml"},
			fileType: types.FileTypeScript,
			path:     "test-scenarios/jmeter/id1.jmx",
		},
		{
			name:     "sniffed zip",
			file:     ScriptFile{Name: "bundle.zip", Content: zipBytes(t)},
			fileType: types.FileTypeZip,
			path:     "test-scenarios/jmeter/id1.zip",
		},
		{
			name:     "sniffed xml",
			file:     ScriptFile{Name: "plan.jmx", Content: []byte(`<?xml version="1.0"?><jmeterTestPlan/>`)},
			fileType: types.FileTypeScript,
			path:     "test-scenarios/jmeter/id1.jmx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := scriptForm()
			file := tt.file
			form.File = &file

			out, err := NewCompiler(WithIDGenerator(fixedID("id1"))).Compile(form, "")
			require.NoError(t, err)
			require.NotNil(t, out.Upload)
			assert.Equal(t, tt.fileType, out.Submission.FileType)
			assert.Equal(t, tt.fileType, out.Upload.FileType)
			assert.Equal(t, tt.path, out.Upload.Path)

			entry, _ := out.Submission.TestScenario.Entry()
			assert.Equal(t, types.ScriptScenario{Script: "id1.jmx"}, entry)
		})
	}
}

func TestCompile_EditReusesID(t *testing.T) {
	c := NewCompiler(WithIDGenerator(func() string {
		t.Fatal("id generator must not be called when editing")
		return ""
	}))

	form := scriptForm()
	form.FileType = types.FileTypeZip
	out, err := c.Compile(form, "existing")
	require.NoError(t, err)
	assert.Equal(t, "existing", out.Submission.TestID)
	assert.Equal(t, types.FileTypeZip, out.Submission.FileType)
}

func TestCompile_ValidationBeforeIDMinting(t *testing.T) {
	called := false
	c := NewCompiler(WithIDGenerator(func() string {
		called = true
		return "id"
	}))

	form := simpleForm()
	form.Body = "{"
	_, err := c.Compile(form, "")
	require.Error(t, err)
	assert.False(t, called)
}

func TestShortID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := ShortID()
		require.Len(t, id, 10)
		require.Regexp(t, `^[0-9a-f]{10}$`, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestOpenScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.jmx")
	require.NoError(t, os.WriteFile(path, []byte("<jmeterTestPlan/>"), 0644))

	f, err := OpenScriptFile(path, MaxFileSize)
	require.NoError(t, err)
	assert.Equal(t, "plan.jmx", f.Name)
	assert.EqualValues(t, 17, f.Size)

	_, err = OpenScriptFile(path, 5)
	var big *types.FileTooLargeError
	assert.True(t, errors.As(err, &big))
}
