package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// statusCarrier is implemented by payloads that belong to a task status.
type statusCarrier interface {
	TaskStatus() task.Status
}

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal ws event payload", "type", eventType, "error", err)
		return
	}

	msg := Message{Type: eventType, Payload: json.RawMessage(data)}
	if sc, ok := payload.(statusCarrier); ok {
		msg.status = sc.TaskStatus()
	}
	h.Broadcast(ctx, msg)
}
