package resilience

import (
	"context"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

// Store wraps a database.Store with a circuit breaker and retries.
// Every call of the store contract is safe to repeat: puts carry a
// pre-generated id, updates write absolute values, deletes are unconditional
// and scans are reads.
type Store struct {
	inner   database.Store
	breaker *Breaker
	retry   *Retry
}

var _ database.Store = (*Store)(nil)

// NewStore decorates inner. A nil breaker or retry disables that layer.
func NewStore(inner database.Store, breaker *Breaker, retry *Retry) *Store {
	return &Store{inner: inner, breaker: breaker, retry: retry}
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() database.Store { return s.inner }

// BreakerState reports the circuit state, or "disabled".
func (s *Store) BreakerState() string {
	if s.breaker == nil {
		return "disabled"
	}
	return s.breaker.State()
}

// call runs fn through the breaker and retry layers. A permanent store
// error means the backend answered, so it neither trips the breaker nor
// gets retried.
func call[T any](ctx context.Context, s *Store, fn func() (T, error)) (T, error) {
	return Do(ctx, s.retry, Transient, func() (T, error) {
		if s.breaker == nil {
			return fn()
		}
		var (
			v         T
			permanent error
		)
		err := s.breaker.Execute(func() error {
			var err error
			v, err = fn()
			if database.Permanent(err) {
				permanent = err
				return nil
			}
			return err
		})
		if permanent != nil {
			return v, permanent
		}
		return v, err
	})
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return call(ctx, s, func() (*task.Task, error) { return s.inner.GetTask(ctx, id) })
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	_, err := call(ctx, s, func() (struct{}, error) { return struct{}{}, s.inner.PutTask(ctx, t) })
	return err
}

func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	return call(ctx, s, func() (*task.Task, error) { return s.inner.UpdateTask(ctx, id, u) })
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := call(ctx, s, func() (struct{}, error) { return struct{}{}, s.inner.DeleteTask(ctx, id) })
	return err
}

func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	return call(ctx, s, func() (database.Page, error) { return s.inner.ScanTasks(ctx, in) })
}

// Ping bypasses the breaker so health checks observe the backend directly.
func (s *Store) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

func (s *Store) Close() error { return s.inner.Close() }
