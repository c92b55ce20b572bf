package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectTaskCreated, SubjectTaskUpdated, SubjectTaskDeleted:
	default:
		return nil
	}

	var p TaskChangedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if p.TaskID == "" {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("task_id is required"))
	}
	if subject != SubjectTaskDeleted && p.Task == nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("task is required"))
	}
	if p.Task != nil && p.Task.ID != p.TaskID {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("task.id does not match task_id"))
	}
	return nil
}
