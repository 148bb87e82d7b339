package execution

import (
	"context"
	"errors"

	"github.com/studiowebux/dlts/internal/types"
)

// ErrNotFound is returned when no test has the requested id
var ErrNotFound = errors.New("test not found")

// Service is the execution backend that stores tests and runs them.
// Submit creates or updates the test keyed by its id and starts a run.
type Service interface {
	Submit(ctx context.Context, sub types.Submission) (string, error)
	Cancel(ctx context.Context, testID string) error
	Get(ctx context.Context, testID string) (types.TestRecord, error)
	List(ctx context.Context) ([]types.TestRecord, error)
	Delete(ctx context.Context, testID string) error
	Tasks(ctx context.Context) ([]types.Task, error)
}
