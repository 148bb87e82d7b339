package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        string `json:"testId"`
	Status    string `json:"status"`
	TaskCount int    `json:"taskCount"`
}

var rows = []row{
	{ID: "a1", Status: "running", TaskCount: 3},
	{ID: "b2", Status: "complete", TaskCount: 1},
}

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		query  string
		want   any
	}{
		{"filter", "[?status=='running'].testId", "", []any{"a1"}},
		{"query", "", "[].taskCount", []any{float64(3), float64(1)}},
		{"filter then query", "[?taskCount > `1`]", "[0].testId", "a1"},
		{"missing field", "", "missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.filter, tt.query)
			require.NoError(t, err)
			assert.False(t, p.Shell())

			got, err := p.Project(rows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_NoExpressions(t *testing.T) {
	p, err := Compile("", "")
	require.NoError(t, err)

	got, err := p.Project(rows[:1])
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"testId": "a1", "status": "running", "taskCount": float64(3)}}, got)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("[?", "")
	assert.ErrorContains(t, err, "invalid filter")

	_, err = Compile("", "[?")
	assert.ErrorContains(t, err, "invalid query")
}

func TestProject_Unmarshalable(t *testing.T) {
	p, err := Compile("", "a")
	require.NoError(t, err)

	_, err = p.Project(map[string]any{"a": make(chan int)})
	assert.ErrorContains(t, err, "failed to marshal value")
}

func TestPipe(t *testing.T) {
	p, err := Compile("[].testId", "$(wc -l)")
	require.NoError(t, err)
	require.True(t, p.Shell())

	projected, err := p.Project(rows)
	require.NoError(t, err)
	got, err := p.Pipe(context.Background(), projected)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestPipe_Errors(t *testing.T) {
	p, err := Compile("", "$(echo nope >&2; exit 3)")
	require.NoError(t, err)
	_, err = p.Pipe(context.Background(), rows)
	assert.ErrorContains(t, err, "nope")

	p, err = Compile("", "[0]")
	require.NoError(t, err)
	_, err = p.Pipe(context.Background(), rows)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err = Compile("", "$(cat)")
	require.NoError(t, err)
	_, err = p.Pipe(ctx, rows)
	assert.Error(t, err)
}
