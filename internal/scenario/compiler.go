package scenario

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

// ScriptPrefix is the object store folder holding uploaded scripts
const ScriptPrefix = "test-scenarios/jmeter/"

// ScriptPath returns the object store key of a test's script
func ScriptPath(testID string, fileType types.FileType) string {
	return ScriptPrefix + ScriptName(testID, fileType)
}

// IDGenerator mints identifiers for new tests
type IDGenerator func() string

// ShortID returns ten url-safe characters taken from a random UUID
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// UploadPlan says where a chosen script must be stored
type UploadPlan struct {
	Path     string
	FileType types.FileType
	File     ScriptFile
}

// Compiled is the outcome of a successful compilation
type Compiled struct {
	Submission types.Submission
	Upload     *UploadPlan
}

// Compiler turns form values into a canonical submission
type Compiler struct {
	validate    *validator.Validate
	newID       IDGenerator
	maxFileSize int64
}

// Option configures a Compiler
type Option func(*Compiler)

// WithIDGenerator replaces the default ShortID generator
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Compiler) {
		c.newID = gen
	}
}

// WithMaxFileSize overrides MaxFileSize
func WithMaxFileSize(limit int64) Option {
	return func(c *Compiler) {
		c.maxFileSize = limit
	}
}

// NewCompiler creates a compiler with the default limits
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		validate:    newValidator(),
		newID:       ShortID,
		maxFileSize: MaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates the form and builds the submission payload.
// existingID is the id of the record being edited, or empty for a new test.
// No side effects happen here; the returned UploadPlan is executed by the caller.
func (c *Compiler) Compile(form FormValues, existingID string) (*Compiled, error) {
	if err := validateForm(c.validate, form); err != nil {
		return nil, err
	}

	testType := form.EffectiveTestType()

	var entry types.Scenario
	if testType == types.TestTypeSimple {
		req, err := inlineRequest(form)
		if err != nil {
			return nil, err
		}
		entry = types.InlineRequestScenario{Requests: []types.InlineRequest{req}}
	} else if form.File != nil {
		if err := CheckFile(*form.File, c.maxFileSize); err != nil {
			return nil, err
		}
	}

	testID := existingID
	if testID == "" {
		testID = c.newID()
	}

	fileType := types.FileTypeNone
	var upload *UploadPlan
	if testType != types.TestTypeSimple {
		entry = types.ScriptScenario{Script: ScriptName(testID, types.FileTypeScript)}

		fileType = form.FileType
		if fileType == types.FileTypeNone {
			fileType = types.FileTypeScript
		}
		if form.File != nil {
			fileType = FileTypeOf(*form.File)
			upload = &UploadPlan{
				Path:     ScriptPath(testID, fileType),
				FileType: fileType,
				File:     *form.File,
			}
		}
	}

	return &Compiled{
		Submission: types.Submission{
			TestID:          testID,
			TestName:        form.TestName,
			TestDescription: form.TestDescription,
			TaskCount:       form.TaskCount,
			TestScenario: types.TestScenario{
				Execution: []types.Execution{{
					Concurrency: form.Concurrency,
					RampUp:      duration.Format(form.RampUp, form.RampUpUnit),
					HoldFor:     duration.Format(form.HoldFor, form.HoldForUnit),
					Scenario:    form.TestName,
				}},
				Scenarios: map[string]types.Scenario{form.TestName: entry},
			},
			TestType: testType,
			FileType: fileType,
		},
		Upload: upload,
	}, nil
}

func inlineRequest(form FormValues) (types.InlineRequest, error) {
	headers, err := parseJSONField("headers", form.Headers)
	if err != nil {
		return types.InlineRequest{}, err
	}
	body, err := parseJSONField("body", form.Body)
	if err != nil {
		return types.InlineRequest{}, err
	}
	return types.InlineRequest{
		URL:     form.Endpoint,
		Method:  form.Method,
		Body:    body,
		Headers: headers,
	}, nil
}

// parseJSONField decodes a headers or body text, treating blank text as {}
func parseJSONField(field, text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, &types.MalformedJSONError{Field: field, Err: err}
	}
	return v, nil
}
