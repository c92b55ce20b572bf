package messagequeue

import (
	"time"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

// TaskChangedPayload is the schema for tasks.created, tasks.updated and
// tasks.deleted. Task is omitted for deletions.
type TaskChangedPayload struct {
	TaskID     string     `json:"task_id"`
	Task       *task.Task `json:"task,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// TaskStatus returns the status of the changed task, or "" for deletions.
func (p TaskChangedPayload) TaskStatus() task.Status {
	if p.Task == nil {
		return ""
	}
	return p.Task.Status
}
