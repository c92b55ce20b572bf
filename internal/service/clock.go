package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

// Clock supplies timestamps for created and updated tasks.
type Clock interface {
	Now() time.Time
}

// MonotonicClock returns UTC times truncated to microseconds. Every call
// returns a time strictly after the previous one, so two writes in the same
// microsecond still order correctly.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock wraps now. A nil now uses time.Now.
func NewMonotonicClock(now func() time.Time) *MonotonicClock {
	if now == nil {
		now = time.Now
	}
	return &MonotonicClock{now: now}
}

func (c *MonotonicClock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

const nanoIDLength = 21

// NewIDGenerator returns a task id generator for format "uuid" or "nanoid".
func NewIDGenerator(format string) (func() string, error) {
	switch format {
	case "", "uuid":
		return uuid.NewString, nil
	case "nanoid":
		gen, err := nanoid.Standard(nanoIDLength)
		if err != nil {
			return nil, fmt.Errorf("nanoid generator: %w", err)
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}
