// Package storetest provides a compliance suite that every database.Store
// backend runs from its own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

// NewStore returns an empty store. It is called once per subtest and is
// responsible for registering any cleanup with t.
type NewStore func(t *testing.T) database.Store

var base = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

// Fixture returns a task with deterministic fields derived from n.
func Fixture(n int, status task.Status) task.Task {
	ts := base.Add(time.Duration(n) * time.Second)
	return task.Task{
		ID:          fmt.Sprintf("task-%03d", n),
		Title:       fmt.Sprintf("Task %d", n),
		Description: fmt.Sprintf("description %d", n),
		Status:      status,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("GetAbsent", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetTask(context.Background(), "missing")
		be.Err(t, err, nil)
		be.True(t, got == nil)
	})

	t.Run("PutAndGet", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		want := Fixture(1, task.StatusInProgress)

		be.Err(t, s.PutTask(ctx, want), nil)
		got, err := s.GetTask(ctx, want.ID)
		be.Err(t, err, nil)
		be.True(t, got != nil)
		AssertSame(t, *got, want)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		first := Fixture(2, task.StatusTodo)
		second := first
		second.Title = "replaced"
		second.Status = task.StatusCompleted

		be.Err(t, s.PutTask(ctx, first), nil)
		be.Err(t, s.PutTask(ctx, second), nil)
		got, err := s.GetTask(ctx, first.ID)
		be.Err(t, err, nil)
		be.True(t, got != nil)
		AssertSame(t, *got, second)
	})

	t.Run("UpdateWritesFields", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		orig := Fixture(3, task.StatusTodo)
		be.Err(t, s.PutTask(ctx, orig), nil)

		later := orig.UpdatedAt.Add(time.Minute)
		got, err := s.UpdateTask(ctx, orig.ID, task.Update{
			Title:       task.Ptr("new title"),
			Description: task.Ptr(""),
			Status:      task.Ptr(task.StatusCompleted),
			UpdatedAt:   later,
		})
		be.Err(t, err, nil)
		be.True(t, got != nil)

		want := orig
		want.Title = "new title"
		want.Description = ""
		want.Status = task.StatusCompleted
		want.UpdatedAt = later
		AssertSame(t, *got, want)

		stored, err := s.GetTask(ctx, orig.ID)
		be.Err(t, err, nil)
		be.True(t, stored != nil)
		AssertSame(t, *stored, want)
	})

	t.Run("UpdateKeepsNilFields", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		orig := Fixture(4, task.StatusInProgress)
		be.Err(t, s.PutTask(ctx, orig), nil)

		later := orig.UpdatedAt.Add(time.Minute)
		got, err := s.UpdateTask(ctx, orig.ID, task.Update{Title: task.Ptr("only title"), UpdatedAt: later})
		be.Err(t, err, nil)
		be.True(t, got != nil)
		be.Equal(t, got.Title, "only title")
		be.Equal(t, got.Description, orig.Description)
		be.Equal(t, got.Status, orig.Status)
	})

	t.Run("UpdateAbsentDoesNotCreate", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		got, err := s.UpdateTask(ctx, "ghost", task.Update{
			Title:     task.Ptr("x"),
			Status:    task.Ptr(task.StatusTodo),
			UpdatedAt: base,
		})
		be.Err(t, err, nil)
		be.True(t, got == nil)

		after, err := s.GetTask(ctx, "ghost")
		be.Err(t, err, nil)
		be.True(t, after == nil)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		tk := Fixture(5, task.StatusTodo)
		be.Err(t, s.PutTask(ctx, tk), nil)

		be.Err(t, s.DeleteTask(ctx, tk.ID), nil)
		be.Err(t, s.DeleteTask(ctx, tk.ID), nil)
		be.Err(t, s.DeleteTask(ctx, "never-existed"), nil)

		got, err := s.GetTask(ctx, tk.ID)
		be.Err(t, err, nil)
		be.True(t, got == nil)
	})

	t.Run("ScanEmpty", func(t *testing.T) {
		s := newStore(t)
		items := Drain(t, s, database.ScanInput{Limit: 10})
		be.Equal(t, len(items), 0)
	})

	t.Run("ScanPaginates", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		want := make(map[string]bool)
		for i := range 25 {
			tk := Fixture(100+i, task.StatusTodo)
			be.Err(t, s.PutTask(ctx, tk), nil)
			want[tk.ID] = true
		}

		pages := 0
		seen := make(map[string]bool)
		in := database.ScanInput{Limit: 10}
		for {
			page, err := s.ScanTasks(ctx, in)
			be.Err(t, err, nil)
			pages++
			be.True(t, len(page.Items) <= 25)
			for _, tk := range page.Items {
				be.True(t, !seen[tk.ID])
				seen[tk.ID] = true
			}
			if page.Next == "" {
				break
			}
			be.True(t, pages < 100)
			in.Cursor = page.Next
		}

		be.True(t, pages > 1)
		be.Equal(t, len(seen), len(want))
		for id := range want {
			be.True(t, seen[id])
		}
	})

	t.Run("ScanFiltersByStatus", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		statuses := task.Statuses()
		for i := range 12 {
			be.Err(t, s.PutTask(ctx, Fixture(200+i, statuses[i%len(statuses)])), nil)
		}

		done := task.StatusCompleted
		items := Drain(t, s, database.ScanInput{Status: &done, Limit: 3})
		be.Equal(t, len(items), 4)
		for _, tk := range items {
			be.Equal(t, tk.Status, task.StatusCompleted)
		}
	})
}

// Drain follows the cursor until the last page and returns every item.
func Drain(t *testing.T, s database.Store, in database.ScanInput) []task.Task {
	t.Helper()
	var out []task.Task
	for range 1000 {
		page, err := s.ScanTasks(context.Background(), in)
		be.Err(t, err, nil)
		out = append(out, page.Items...)
		if page.Next == "" {
			return out
		}
		in.Cursor = page.Next
	}
	t.Fatal("scan did not terminate")
	return nil
}

// AssertSame compares two tasks field by field, using time.Equal for timestamps.
func AssertSame(t *testing.T, got, want task.Task) {
	t.Helper()
	be.Equal(t, got.ID, want.ID)
	be.Equal(t, got.Title, want.Title)
	be.Equal(t, got.Description, want.Description)
	be.Equal(t, got.Status, want.Status)
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("updatedAt: got %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}
