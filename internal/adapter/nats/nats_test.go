package nats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/logger"
	"github.com/Strob0t/taskboard/internal/port/messagequeue"
)

const waitTimeout = 10 * time.Second

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// taskID returns an id unique to the running test, so events left in the
// shared TASKBOARD stream by other runs are ignored.
func taskID(t *testing.T) string {
	t.Helper()
	return strings.ReplaceAll(t.Name(), "/", "-") + "-" + time.Now().Format("150405.000000000")
}

func taskEvent(t *testing.T, id string, status task.Status) []byte {
	t.Helper()
	var tk *task.Task
	if status != "" {
		now := time.Now().UTC()
		tk = &task.Task{ID: id, Title: "Write docs", Status: status, CreatedAt: now, UpdatedAt: now}
	}
	data, err := json.Marshal(messagequeue.TaskChangedPayload{TaskID: id, Task: tk, OccurredAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// watchDLQ delivers the DLQ copies of subject that mention id. It reads the
// DLQ with a raw consumer so the payload is not validated again.
func watchDLQ(t *testing.T, q *Queue, subject, id string) <-chan []byte {
	t.Helper()
	ctx := context.Background()

	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject + dlqSuffix,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("create DLQ consumer: %v", err)
	}

	out := make(chan []byte, 4)
	sub, err := consumer.Consume(func(msg jetstream.Msg) {
		_ = msg.Ack()
		if strings.Contains(string(msg.Data()), id) {
			select {
			case out <- msg.Data():
			default:
			}
		}
	})
	if err != nil {
		t.Fatalf("consume DLQ: %v", err)
	}
	t.Cleanup(sub.Stop)
	return out
}

type received struct {
	subject   string
	requestID string
	payload   messagequeue.TaskChangedPayload
}

func TestQueueTaskEventsRoundTrip(t *testing.T) {
	q := testConnect(t)
	id := taskID(t)

	events := make(chan received, 8)
	stop, err := q.Subscribe(context.Background(), messagequeue.SubjectTaskAll, func(ctx context.Context, subject string, data []byte) error {
		var p messagequeue.TaskChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if p.TaskID == id {
			events <- received{subject: subject, requestID: logger.RequestID(ctx), payload: p}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), "req-nats-1")
	publish := []struct {
		subject string
		status  task.Status
	}{
		{messagequeue.SubjectTaskCreated, task.StatusTodo},
		{messagequeue.SubjectTaskUpdated, task.StatusCompleted},
		{messagequeue.SubjectTaskDeleted, ""},
	}
	for _, p := range publish {
		if err := q.Publish(ctx, p.subject, taskEvent(t, id, p.status)); err != nil {
			t.Fatalf("Publish %s: %v", p.subject, err)
		}
	}

	for _, want := range publish {
		select {
		case got := <-events:
			if got.subject != want.subject {
				t.Errorf("subject = %q, want %q", got.subject, want.subject)
			}
			if got.payload.TaskStatus() != want.status {
				t.Errorf("%s: status = %q, want %q", got.subject, got.payload.TaskStatus(), want.status)
			}
			if got.requestID != "req-nats-1" {
				t.Errorf("%s: request id = %q, want req-nats-1", got.subject, got.requestID)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %s", want.subject)
		}
	}
}

func TestQueueInvalidTaskEventGoesToDLQ(t *testing.T) {
	q := testConnect(t)
	id := taskID(t)
	subject := messagequeue.SubjectTaskUpdated
	dlq := watchDLQ(t, q, subject, id)

	var handled atomic.Int32
	stop, err := q.Subscribe(context.Background(), subject, func(_ context.Context, _ string, data []byte) error {
		if strings.Contains(string(data), id) {
			handled.Add(1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	// An update event must carry the task, and its id must match task_id.
	bad, _ := json.Marshal(messagequeue.TaskChangedPayload{
		TaskID: id,
		Task:   &task.Task{ID: "someone-else", Title: "x", Status: task.StatusTodo},
	})
	if err := q.Publish(context.Background(), subject, bad); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-dlq:
		if string(data) != string(bad) {
			t.Errorf("DLQ data = %s, want %s", data, bad)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the DLQ copy")
	}
	if handled.Load() != 0 {
		t.Fatal("handler must not see an invalid event")
	}
}

func TestQueueHandlerFailureRetriesThenDLQ(t *testing.T) {
	q := testConnect(t)
	id := taskID(t)
	subject := messagequeue.SubjectTaskCreated
	dlq := watchDLQ(t, q, subject, id)

	var (
		mu       sync.Mutex
		attempts int
	)
	stop, err := q.Subscribe(context.Background(), subject, func(_ context.Context, _ string, data []byte) error {
		if !strings.Contains(string(data), id) {
			return nil
		}
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("projection unavailable")
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	event := taskEvent(t, id, task.StatusInProgress)
	if err := q.Publish(context.Background(), subject, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-dlq:
		if string(data) != string(event) {
			t.Errorf("DLQ data = %s, want %s", data, event)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for retries to be exhausted")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != maxRetries+1 {
		t.Errorf("handler ran %d times, want %d", attempts, maxRetries+1)
	}
}

func TestQueueKeyValueHoldsTaskSnapshots(t *testing.T) {
	q := testConnect(t)
	ctx := context.Background()
	id := taskID(t)

	kv, err := q.KeyValue(ctx, "test-tasks-"+strings.ReplaceAll(t.Name(), "/", "-"), time.Minute)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}

	if _, err := kv.Put(ctx, "t1", taskEvent(t, id, task.StatusTodo)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := kv.Put(ctx, "t1", taskEvent(t, id, task.StatusCompleted)); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	entry, err := kv.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var p messagequeue.TaskChangedPayload
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.TaskStatus() != task.StatusCompleted || entry.Revision() < 2 {
		t.Errorf("expected latest snapshot COMPLETED at revision >= 2, got %q at %d", p.TaskStatus(), entry.Revision())
	}

	if err := kv.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := kv.Get(ctx, "t1"); !errors.Is(err, jetstream.ErrKeyNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrKeyNotFound", err)
	}
	if !q.IsConnected() {
		t.Error("connection dropped during test")
	}
}

func TestRetryCount(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"missing", "", 0},
		{"set", "2", 2},
		{"exhausted", "3", maxRetries},
		{"malformed", "many", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := nats.Header{}
			if tt.value != "" {
				h.Set(headerRetryCount, tt.value)
			}
			if got := retryCount(h); got != tt.want {
				t.Errorf("retryCount(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestCopyHeaderKeepsRequestIDIndependent(t *testing.T) {
	h := nats.Header{}
	h.Set(headerRequestID, "req-1")
	h.Set(headerRetryCount, "1")

	cp := copyHeader(h)
	cp.Set(headerRetryCount, "2")
	cp.Add(headerRequestID, "req-2")

	if h.Get(headerRetryCount) != "1" || len(h.Values(headerRequestID)) != 1 {
		t.Fatalf("copyHeader shares storage with the original: %v", h)
	}
	if cp.Get(headerRequestID) != "req-1" {
		t.Errorf("copy lost the request id: %v", cp)
	}
}
