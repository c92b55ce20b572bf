package postgres

import (
	"encoding/base64"
	"fmt"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

const taskColumns = `id, title, description, status, created_at, updated_at`

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var status string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// statusArg converts an optional status filter to a nullable query argument.
func statusArg(s *task.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(c string) (string, error) {
	if c == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("%w %q", database.ErrInvalidCursor, c)
	}
	return string(b), nil
}
