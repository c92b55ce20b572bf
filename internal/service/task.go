package service

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	tbotel "github.com/Strob0t/taskboard/internal/adapter/otel"
	"github.com/Strob0t/taskboard/internal/domain"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/broadcast"
	"github.com/Strob0t/taskboard/internal/port/database"
	"github.com/Strob0t/taskboard/internal/port/messagequeue"
)

// MsgTaskNotFound is the message of the NotFound error for an absent task.
const MsgTaskNotFound = "Task not found"

// TaskService implements the task persistence operations on top of a Store.
// It holds no task data; every call goes to the store.
type TaskService struct {
	store    database.Store
	clock    Clock
	newID    func() string
	mode     task.UpdateMode
	pageSize int
	queue    messagequeue.Queue
	hub      broadcast.Broadcaster
	metrics  *tbotel.Metrics
}

// TaskOption configures a TaskService.
type TaskOption func(*TaskService)

// WithClock overrides the timestamp source.
func WithClock(c Clock) TaskOption {
	return func(s *TaskService) { s.clock = c }
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(gen func() string) TaskOption {
	return func(s *TaskService) { s.newID = gen }
}

// WithUpdateMode selects replace or merge semantics for Update.
func WithUpdateMode(m task.UpdateMode) TaskOption {
	return func(s *TaskService) { s.mode = m }
}

// WithPageSize sets the scan page size hint.
func WithPageSize(n int) TaskOption {
	return func(s *TaskService) { s.pageSize = database.PageLimit(n) }
}

// WithQueue publishes change events to q.
func WithQueue(q messagequeue.Queue) TaskOption {
	return func(s *TaskService) { s.queue = q }
}

// WithBroadcaster pushes change events to connected clients.
func WithBroadcaster(b broadcast.Broadcaster) TaskOption {
	return func(s *TaskService) { s.hub = b }
}

// WithMetrics records operation metrics.
func WithMetrics(m *tbotel.Metrics) TaskOption {
	return func(s *TaskService) { s.metrics = m }
}

// NewTaskService creates a new TaskService backed by store.
func NewTaskService(store database.Store, opts ...TaskOption) *TaskService {
	s := &TaskService{
		store:    store,
		clock:    NewMonotonicClock(nil),
		mode:     task.UpdateReplace,
		pageSize: database.DefaultPageSize,
	}
	s.newID, _ = NewIDGenerator("uuid")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every task, optionally restricted to one status, by draining
// the scan page by page. The result is never nil.
func (s *TaskService) List(ctx context.Context, status *task.Status) (_ []task.Task, err error) {
	ctx, span := tbotel.StartTaskSpan(ctx, "list", "")
	defer func() { tbotel.EndSpan(span, err) }()

	all := []task.Task{}
	pages := 0
	for items, err := range s.Pages(ctx, status) {
		if err != nil {
			return nil, err
		}
		pages++
		all = append(all, items...)
	}

	if s.metrics != nil {
		s.metrics.ListSize.Record(ctx, int64(len(all)))
		s.metrics.ListPages.Record(ctx, int64(pages))
	}
	return all, nil
}

// Pages lazily produces scan pages in store order. Iteration stops after the
// last page or at the first error, which is yielded once.
func (s *TaskService) Pages(ctx context.Context, status *task.Status) iter.Seq2[[]task.Task, error] {
	return func(yield func([]task.Task, error) bool) {
		filter := ""
		if status != nil {
			filter = string(*status)
		}
		in := database.ScanInput{Status: status, Limit: s.pageSize}

		for n := 1; ; n++ {
			pctx, span := tbotel.StartScanSpan(ctx, n, filter)
			page, err := s.store.ScanTasks(pctx, in)
			tbotel.EndSpan(span, err)
			if err != nil {
				s.countFailure(ctx, "scan")
				yield(nil, domain.Storage(err))
				return
			}
			if !yield(page.Items, nil) {
				return
			}
			if page.Next == "" {
				return
			}
			in.Cursor = page.Next
		}
	}
}

// Get returns the task with the given id, or a NotFound error.
func (s *TaskService) Get(ctx context.Context, id string) (_ *task.Task, err error) {
	ctx, span := tbotel.StartTaskSpan(ctx, "get", id)
	defer func() { tbotel.EndSpan(span, err) }()

	if id == "" {
		return nil, domain.NotFound(MsgTaskNotFound)
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.countFailure(ctx, "get")
		return nil, domain.Storage(err)
	}
	if t == nil {
		return nil, domain.NotFound(MsgTaskNotFound)
	}
	return t, nil
}

// Create stores a new task with a fresh id. Omitted description defaults to
// "" and omitted status to TODO. The caller validates req.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (_ *task.Task, err error) {
	ctx, span := tbotel.StartTaskSpan(ctx, "create", "")
	defer func() { tbotel.EndSpan(span, err) }()

	now := s.clock.Now()
	t := task.Task{
		ID:          s.newID(),
		Title:       req.Title,
		Description: deref(req.Description, ""),
		Status:      deref(req.Status, task.DefaultStatus),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("task.id", t.ID))

	if err := s.store.PutTask(ctx, t); err != nil {
		s.countFailure(ctx, "create")
		return nil, domain.Storage(err)
	}

	if s.metrics != nil {
		s.metrics.TasksCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(t.Status))))
	}
	s.publish(ctx, messagequeue.SubjectTaskCreated, broadcast.EventTaskCreated, t.ID, &t)
	return &t, nil
}

// Update overwrites the task's fields and refreshes updatedAt. In replace
// mode an omitted description becomes "" and an omitted status becomes TODO;
// in merge mode omitted fields keep their stored values. A nil title is
// never written. Returns NotFound when the task does not exist; no record is
// created in that case.
func (s *TaskService) Update(ctx context.Context, id string, req task.UpdateRequest) (_ *task.Task, err error) {
	ctx, span := tbotel.StartTaskSpan(ctx, "update", id)
	defer func() { tbotel.EndSpan(span, err) }()

	if id == "" {
		return nil, domain.NotFound(MsgTaskNotFound)
	}

	u := task.Update{
		Title:     req.Title,
		UpdatedAt: s.clock.Now(),
	}
	if s.mode == task.UpdateMerge {
		u.Description = req.Description
		u.Status = req.Status
	} else {
		u.Description = task.Ptr(deref(req.Description, ""))
		u.Status = task.Ptr(deref(req.Status, task.DefaultStatus))
	}

	t, err := s.store.UpdateTask(ctx, id, u)
	if err != nil {
		s.countFailure(ctx, "update")
		return nil, domain.Storage(err)
	}
	if t == nil {
		return nil, domain.NotFound(MsgTaskNotFound)
	}

	if s.metrics != nil {
		s.metrics.TasksUpdated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(t.Status))))
	}
	s.publish(ctx, messagequeue.SubjectTaskUpdated, broadcast.EventTaskUpdated, t.ID, t)
	return t, nil
}

// Delete removes the task. Deleting an absent task succeeds.
func (s *TaskService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tbotel.StartTaskSpan(ctx, "delete", id)
	defer func() { tbotel.EndSpan(span, err) }()

	if id == "" {
		return nil
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.countFailure(ctx, "delete")
		return domain.Storage(err)
	}

	if s.metrics != nil {
		s.metrics.TasksDeleted.Add(ctx, 1)
	}
	s.publish(ctx, messagequeue.SubjectTaskDeleted, broadcast.EventTaskDeleted, id, nil)
	return nil
}

// Ping checks that the store is reachable.
func (s *TaskService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return domain.Storage(err)
	}
	return nil
}

// publish emits a change event. Failures are logged and never fail the
// operation: the store write already happened.
func (s *TaskService) publish(ctx context.Context, subject, eventType, id string, t *task.Task) {
	payload := messagequeue.TaskChangedPayload{
		TaskID:     id,
		Task:       t,
		OccurredAt: s.clock.Now(),
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}

	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal task event", "subject", subject, "task_id", id, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "failed to publish task event", "subject", subject, "task_id", id, "error", err)
	}
}

func (s *TaskService) countFailure(ctx context.Context, op string) {
	if s.metrics != nil {
		s.metrics.StoreFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
