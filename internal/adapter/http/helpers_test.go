package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/taskboard/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", domain.NotFound("Task not found"), http.StatusNotFound, "Task not found"},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.NotFound("Task not found")), http.StatusNotFound, "Task not found"},
		{"validation", domain.Validation("title is required"), http.StatusBadRequest, "title is required"},
		{"storage", domain.Storage(errors.New("dial tcp: refused")), http.StatusInternalServerError, "Failed to get task"},
		{"untagged", errors.New("boom"), http.StatusInternalServerError, "Failed to get task"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/tasks/x", http.NoBody)
			writeDomainError(rec, req, tt.err, "Failed to get task")

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, body.Error)
			}
		})
	}
}

func TestWriteDomainErrorHidesStorageDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", http.NoBody)
	writeDomainError(rec, req, domain.Storage(errors.New("secret dsn password=hunter2")), "Failed to get tasks")

	if got := rec.Body.String(); got != "{\"error\":\"Failed to get tasks\"}\n" {
		t.Fatalf("storage detail leaked: %q", got)
	}
}
