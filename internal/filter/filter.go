// Package filter narrows and reshapes command output. A filter and a query
// are JMESPath expressions applied in turn. A query written as $(command)
// pipes the filtered value as JSON to a shell command instead.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
)

// ShellTimeout bounds a $(command) query
const ShellTimeout = 30 * time.Second

var shellQuery = regexp.MustCompile(`^\$\((.+)\)$`)

// Pipeline is a compiled filter and query
type Pipeline struct {
	filter  *jmespath.JMESPath
	query   *jmespath.JMESPath
	command string
}

// Compile parses filter and query. Either may be empty.
func Compile(filter, query string) (*Pipeline, error) {
	p := &Pipeline{}
	if filter != "" {
		jp, err := jmespath.Compile(filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
		p.filter = jp
	}

	if m := shellQuery.FindStringSubmatch(query); len(m) > 1 {
		p.command = m[1]
	} else if query != "" {
		jp, err := jmespath.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", query, err)
		}
		p.query = jp
	}
	return p, nil
}

// Shell reports whether the query runs a shell command
func (p *Pipeline) Shell() bool {
	return p.command != ""
}

// Project runs the JMESPath stages over v. The value goes through JSON
// first so its json tags name the fields the expressions see.
func (p *Pipeline) Project(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	if p.filter != nil {
		if doc, err = p.filter.Search(doc); err != nil {
			return nil, fmt.Errorf("failed to apply filter: %w", err)
		}
	}
	if p.query != nil {
		if doc, err = p.query.Search(doc); err != nil {
			return nil, fmt.Errorf("failed to apply query: %w", err)
		}
	}
	return doc, nil
}

// Pipe writes v as indented JSON to the shell query and returns its trimmed
// stdout. stderr becomes the error text when the command fails.
func (p *Pipeline) Pipe(ctx context.Context, v any) (string, error) {
	if p.command == "" {
		return "", fmt.Errorf("query is not a shell command")
	}
	input, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ShellTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("query command %q failed: %s: %w", p.command, msg, err)
		}
		return "", fmt.Errorf("query command %q failed: %w", p.command, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
