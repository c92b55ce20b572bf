// Package database defines the task store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

// Store is the port interface for task persistence.
//
// Implementations return plain wrapped errors; the service tags them.
type Store interface {
	// GetTask returns nil, nil when no task has the given id.
	GetTask(ctx context.Context, id string) (*task.Task, error)
	// PutTask writes t unconditionally, replacing any record with the same id.
	PutTask(ctx context.Context, t task.Task) error
	// UpdateTask writes the non-nil fields of u and returns the stored result.
	// It returns nil, nil when the id is absent and must not create a record.
	UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error)
	// DeleteTask removes the task. Deleting an absent id is not an error.
	DeleteTask(ctx context.Context, id string) error
	// ScanTasks returns one page of tasks.
	ScanTasks(ctx context.Context, in ScanInput) (Page, error)

	Ping(ctx context.Context) error
	Close() error
}

// ScanInput selects one page of a scan.
type ScanInput struct {
	// Status restricts the scan to tasks with this status when non-nil.
	Status *task.Status
	// Cursor is the Next value of the previous page, empty for the first page.
	Cursor string
	// Limit is a hint for the page size. Backends may return fewer items,
	// including zero items with a non-empty Next.
	Limit int
}

// Page is one slice of a scan. Next is empty on the last page.
type Page struct {
	Items []task.Task
	Next  string
}

// DefaultPageSize is used when ScanInput.Limit is not positive.
const DefaultPageSize = 100

// PageLimit normalises a requested limit.
func PageLimit(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	return n
}
