package lifecycle

import (
	"fmt"

	"github.com/studiowebux/dlts/internal/types"
)

// RunningSnapshot tallies the task statuses of a running test
type RunningSnapshot struct {
	Provisioning int `json:"provisioning"`
	Pending      int `json:"pending"`
	Running      int `json:"running"`
	Other        int `json:"other"`
	Total        int `json:"total"`
	TaskCount    int `json:"taskCount"`
}

// Summarize counts tasks by lastStatus. taskCount is the number of tasks the test asked for.
func Summarize(tasks []types.Task, taskCount int) RunningSnapshot {
	snap := RunningSnapshot{Total: len(tasks), TaskCount: taskCount}
	for _, task := range tasks {
		switch task.LastStatus {
		case types.TaskProvisioning:
			snap.Provisioning++
		case types.TaskPending:
			snap.Pending++
		case types.TaskRunning:
			snap.Running++
		default:
			snap.Other++
		}
	}
	return snap
}

// Progress renders the task total as "N of taskCount"
func (s RunningSnapshot) Progress() string {
	return fmt.Sprintf("%d of %d", s.Total, s.TaskCount)
}

// AnyRunning reports whether the fleet has tasks. Any reported task, whatever
// its status, occupies the shared execution capacity.
func AnyRunning(tasks []types.Task) bool {
	return len(tasks) > 0
}
