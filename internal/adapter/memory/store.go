// Package memory provides an in-process task store for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

func init() {
	database.Register("memory", func(_ context.Context, _ *config.Config) (database.Store, error) {
		return NewStore(), nil
	})
}

// Store implements database.Store with a map. Scans page in id order and
// use the last returned id as cursor.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]task.Task
}

var _ database.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]task.Task)}
}

func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) PutTask(_ context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[t.ID] = t
	return nil
}

func (s *Store) UpdateTask(_ context.Context, id string, u task.Update) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t = u.Apply(t)
	s.tasks[id] = t
	return &t, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	return nil
}

func (s *Store) ScanTasks(_ context.Context, in database.ScanInput) (database.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tasks))
	for id, t := range s.tasks {
		if id <= in.Cursor {
			continue
		}
		if in.Status != nil && t.Status != *in.Status {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	limit := database.PageLimit(in.Limit)
	page := database.Page{}
	if len(ids) > limit {
		ids = ids[:limit]
		page.Next = ids[limit-1]
	}
	page.Items = make([]task.Task, 0, len(ids))
	for _, id := range ids {
		page.Items = append(page.Items, s.tasks[id])
	}
	return page, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
