// Package task defines the Task domain entity.
package task

import (
	"time"
)

// Status represents the current state of a task on the board.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// DefaultStatus is assigned when a caller omits the status.
const DefaultStatus = StatusTodo

// Statuses returns all statuses in board column order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusCompleted}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a single unit of work on the board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRequest holds the fields accepted when creating a task.
type CreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// UpdateRequest holds the fields accepted when updating a task.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Update is the write applied to a stored task. Nil fields are left as
// stored; UpdatedAt is always written. ID and CreatedAt are never touched.
type Update struct {
	Title       *string
	Description *string
	Status      *Status
	UpdatedAt   time.Time
}

// Apply returns t with u written over it.
func (u Update) Apply(t Task) Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	t.UpdatedAt = u.UpdatedAt
	return t
}

// UpdateMode selects how omitted fields of an UpdateRequest are treated.
type UpdateMode string

const (
	// UpdateReplace resets omitted description and status to their defaults.
	// This is the historical behaviour of the board API: a partial payload
	// erases the stored description and status.
	UpdateReplace UpdateMode = "replace"
	// UpdateMerge leaves omitted fields as stored.
	UpdateMerge UpdateMode = "merge"
)

// Valid reports whether m is a known update mode.
func (m UpdateMode) Valid() bool {
	return m == UpdateReplace || m == UpdateMerge
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
