package natskv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	natsadapter "github.com/Strob0t/taskboard/internal/adapter/nats"
	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

const (
	taskKeyPrefix = "task."
	maxCASRetries = 5
)

func init() {
	database.Register("natskv", func(ctx context.Context, cfg *config.Config) (database.Store, error) {
		q, err := natsadapter.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		kv, err := q.KeyValue(ctx, cfg.NATS.KVBucket, 0)
		if err != nil {
			_ = q.Close()
			return nil, err
		}
		s := NewStore(kv)
		s.closer = q.Close
		return s, nil
	})
}

// Store implements database.Store on a KV bucket holding one JSON document
// per task. Updates use the entry revision for compare-and-set.
type Store struct {
	kv     jetstream.KeyValue
	closer func() error
}

var _ database.Store = (*Store)(nil)

// NewStore creates a Store on an existing bucket.
func NewStore(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

func taskKey(id string) string {
	return taskKeyPrefix + base64.RawURLEncoding.EncodeToString([]byte(id))
}

func (s *Store) get(ctx context.Context, id string) (*task.Task, uint64, error) {
	entry, err := s.kv.Get(ctx, taskKey(id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	var t task.Task
	if err := json.Unmarshal(entry.Value(), &t); err != nil {
		return nil, 0, fmt.Errorf("%w: decode task %s: %w", database.ErrCorruptRecord, id, err)
	}
	return &t, entry.Revision(), nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	t, _, err := s.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	if _, err := s.kv.Put(ctx, taskKey(t.ID), data); err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTask reads, applies and writes back with the read revision. A
// concurrent writer makes Update fail with ErrKeyExists and the cycle
// repeats.
func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	for range maxCASRetries {
		cur, rev, err := s.get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("update task %s: %w", id, err)
		}
		if cur == nil {
			return nil, nil
		}

		next := u.Apply(*cur)
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode task %s: %w", id, err)
		}
		if _, err := s.kv.Update(ctx, taskKey(id), data, rev); err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				continue
			}
			return nil, fmt.Errorf("update task %s: %w", id, err)
		}
		return &next, nil
	}
	return nil, fmt.Errorf("update task %s: too many concurrent writers", id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, taskKey(id))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ScanTasks lists the bucket keys, orders them and reads up to Limit
// matching tasks after the cursor key.
func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	keys, err := s.taskKeys(ctx)
	if err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", err)
	}
	slices.Sort(keys)

	if in.Cursor != "" {
		after, err := base64.RawURLEncoding.DecodeString(in.Cursor)
		if err != nil || len(after) == 0 {
			return database.Page{}, fmt.Errorf("%w %q", database.ErrInvalidCursor, in.Cursor)
		}
		i, found := slices.BinarySearch(keys, string(after))
		if found {
			i++
		}
		keys = keys[i:]
	}

	limit := database.PageLimit(in.Limit)
	page := database.Page{Items: make([]task.Task, 0, min(limit, len(keys)))}
	for i, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return database.Page{}, fmt.Errorf("scan tasks: %w", err)
		}
		var t task.Task
		if err := json.Unmarshal(entry.Value(), &t); err != nil {
			return database.Page{}, fmt.Errorf("%w: decode %s: %w", database.ErrCorruptRecord, key, err)
		}
		if in.Status != nil && t.Status != *in.Status {
			continue
		}
		page.Items = append(page.Items, t)
		if len(page.Items) == limit {
			if i < len(keys)-1 {
				page.Next = base64.RawURLEncoding.EncodeToString([]byte(key))
			}
			break
		}
	}
	return page, nil
}

func (s *Store) taskKeys(ctx context.Context) ([]string, error) {
	lister, err := s.kv.ListKeysFiltered(ctx, taskKeyPrefix+">")
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for k := range lister.Keys() {
		if strings.HasPrefix(k, taskKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.kv.Status(ctx); err != nil {
		return fmt.Errorf("kv status: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
