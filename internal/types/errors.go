package types

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// ValidationError reports a missing or invalid field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// OutOfRangeError reports a numeric field outside its allowed bounds
type OutOfRangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

// MalformedJSONError reports headers or body text that is not valid JSON
type MalformedJSONError struct {
	Field string // "headers" or "body"
	Err   error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("%s text is not valid JSON: %v", e.Field, e.Err)
}

func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

// FileTooLargeError reports a script upload above the size limit
type FileTooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %s is %s, exceeds limit of %s",
		e.Name, units.BytesSize(float64(e.Size)), units.BytesSize(float64(e.Limit)))
}

// UnsupportedExtensionError reports a script upload with a disallowed extension
type UnsupportedExtensionError struct {
	Name      string
	Extension string
	Allowed   []string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("file %s has extension %q, only (%s) files are allowed",
		e.Name, e.Extension, strings.Join(e.Allowed, ","))
}

// TransportError wraps a failure of an external collaborator
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransitionError reports a lifecycle action that the current status does not allow
type TransitionError struct {
	From   Status
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a test in status %q", e.Action, e.From)
}
