package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/studiowebux/dlts/internal/scenario"
)

// formFile is the on-disk form: the form fields plus the path of the script to upload
type formFile struct {
	scenario.FormValues `yaml:",inline"`
	Script              string `yaml:"script,omitempty"`
}

// LoadForm reads a YAML or JSON form file. A script path is resolved
// relative to the form file and read subject to limit.
func LoadForm(path string, limit int64) (scenario.FormValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario.FormValues{}, fmt.Errorf("failed to read form file: %w", err)
	}

	var f formFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return scenario.FormValues{}, fmt.Errorf("failed to parse form file: %w", err)
	}

	form := f.FormValues
	if f.Script != "" {
		scriptPath := f.Script
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(filepath.Dir(path), scriptPath)
		}
		file, err := scenario.OpenScriptFile(scriptPath, limit)
		if err != nil {
			return scenario.FormValues{}, err
		}
		form.File = file
	}
	return form, nil
}

// MarshalForm renders a form as YAML for editing
func MarshalForm(form scenario.FormValues) ([]byte, error) {
	data, err := yaml.Marshal(formFile{FormValues: form})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal form: %w", err)
	}
	return data, nil
}
