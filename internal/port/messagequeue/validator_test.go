package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidTaskCreated(t *testing.T) {
	data := []byte(`{"task_id":"t1","task":{"id":"t1","title":"Fix","description":"","status":"TODO","createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"},"occurred_at":"2026-01-01T00:00:00Z"}`)
	if err := Validate(SubjectTaskCreated, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidTaskDeleted(t *testing.T) {
	data := []byte(`{"task_id":"t1","occurred_at":"2026-01-01T00:00:00Z"}`)
	if err := Validate(SubjectTaskDeleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
		want    string
	}{
		{"missing task id", SubjectTaskDeleted, `{"occurred_at":"2026-01-01T00:00:00Z"}`, "task_id is required"},
		{"update without task", SubjectTaskUpdated, `{"task_id":"t1"}`, "task is required"},
		{"mismatched ids", SubjectTaskUpdated, `{"task_id":"t1","task":{"id":"t2"}}`, "does not match"},
		{"wrong type", SubjectTaskCreated, `{"task_id":42}`, "schema validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectTaskCreated, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("boards.archived", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subjects should pass, got %v", err)
	}
}
