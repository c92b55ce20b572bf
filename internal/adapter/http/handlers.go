package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

const (
	msgListFailed   = "Failed to get tasks"
	msgGetFailed    = "Failed to get task"
	msgCreateFailed = "Failed to create task"
	msgUpdateFailed = "Failed to update task"
	msgDeleteFailed = "Failed to delete task"
)

// TaskService is the task surface the HTTP handlers call.
type TaskService interface {
	List(ctx context.Context, status *task.Status) ([]task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (*task.Task, error)
	Update(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Tasks       TaskService
	Backend     string // storage backend name reported by /health
	Environment string
	BodyLimit   int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return DefaultBodyLimit
}

// ListTasks handles GET /api/tasks, optionally filtered by ?status=.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	var status *task.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := task.ParseStatus(raw)
		if err != nil {
			writeDomainError(w, r, err, msgListFailed)
			return
		}
		status = &st
	}

	items, err := h.Tasks.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, r, err, msgListFailed)
		return
	}
	if items == nil {
		items = []task.Task{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Tasks.Get, msgGetFailed)(w, r)
}

// CreateTask handles POST /api/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.bodyLimit(), task.ValidateCreate, h.Tasks.Create, msgCreateFailed)(w, r)
}

// UpdateTask handles PUT /api/tasks/{id}.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	handleUpdate(h.bodyLimit(), task.ValidateUpdate, h.Tasks.Update, msgUpdateFailed)(w, r)
}

// DeleteTask handles DELETE /api/tasks/{id}. Absent tasks still answer 204.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Tasks.Delete, msgDeleteFailed)(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	Backend     string `json:"backend,omitempty"`
	Environment string `json:"environment,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Health handles GET /health by pinging the storage backend.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "health check failed", "backend", h.Backend, "error", err)
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:  "error",
			Storage: "disconnected",
			Backend: h.Backend,
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Storage:     "connected",
		Backend:     h.Backend,
		Environment: h.Environment,
	})
}
