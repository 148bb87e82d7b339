package scenario

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studiowebux/dlts/internal/duration"
	"github.com/studiowebux/dlts/internal/types"
)

const (
	MinTaskCount   = 1
	MaxTaskCount   = 500
	MinConcurrency = 1
	MaxConcurrency = 200
)

// FormValues is the operator input for one test definition
type FormValues struct {
	TestName        string         `json:"testName" yaml:"testName" validate:"required"`
	TestDescription string         `json:"testDescription" yaml:"testDescription" validate:"required"`
	TaskCount       int            `json:"taskCount" yaml:"taskCount" validate:"min=1,max=500"`
	Concurrency     int            `json:"concurrency" yaml:"concurrency" validate:"min=1,max=200"`
	RampUp          int            `json:"rampUp" yaml:"rampUp" validate:"min=0"`
	RampUpUnit      duration.Unit  `json:"rampUpUnit" yaml:"rampUpUnit" validate:"oneof=s m"`
	HoldFor         int            `json:"holdFor" yaml:"holdFor" validate:"min=0"`
	HoldForUnit     duration.Unit  `json:"holdForUnit" yaml:"holdForUnit" validate:"oneof=s m"`
	Endpoint        string         `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method          string         `json:"method,omitempty" yaml:"method,omitempty"`
	Body            string         `json:"body,omitempty" yaml:"body,omitempty"`
	Headers         string         `json:"headers,omitempty" yaml:"headers,omitempty"`
	TestType        types.TestType `json:"testType,omitempty" yaml:"testType,omitempty"`
	FileType        types.FileType `json:"fileType,omitempty" yaml:"fileType,omitempty"`
	File            *ScriptFile    `json:"-" yaml:"-" validate:"-"`
}

// EffectiveTestType returns simple for an empty test type
func (f FormValues) EffectiveTestType() types.TestType {
	if f.TestType == "" {
		return types.TestTypeSimple
	}
	return f.TestType
}

// bounds of the range-checked fields, keyed by json name
var fieldBounds = map[string][2]int{
	"taskCount":   {MinTaskCount, MaxTaskCount},
	"concurrency": {MinConcurrency, MaxConcurrency},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm checks required fields and bounds, returning the first problem
func validateForm(v *validator.Validate, form FormValues) error {
	if err := v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &types.ValidationError{Message: err.Error()}
		}
		return toDomainError(form, verrs[0])
	}

	if form.EffectiveTestType() == types.TestTypeSimple {
		if strings.TrimSpace(form.Endpoint) == "" {
			return &types.ValidationError{Field: "endpoint", Message: "endpoint is required for simple tests"}
		}
		if strings.TrimSpace(form.Method) == "" {
			return &types.ValidationError{Field: "method", Message: "method is required for simple tests"}
		}
	}
	return nil
}

func toDomainError(form FormValues, fe validator.FieldError) error {
	if b, ok := fieldBounds[fe.Field()]; ok && (fe.Tag() == "min" || fe.Tag() == "max") {
		value := form.TaskCount
		if fe.Field() == "concurrency" {
			value = form.Concurrency
		}
		return &types.OutOfRangeError{Field: fe.Field(), Value: value, Min: b[0], Max: b[1]}
	}

	switch fe.Tag() {
	case "required":
		return &types.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s is required", fe.Field())}
	case "oneof":
		return &types.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s must be one of (%s), got %q", fe.Field(), fe.Param(), fe.Value())}
	default:
		return &types.ValidationError{Field: fe.Field(), Message: fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())}
	}
}
