// Package redis provides a Redis-backed task store. Each task is a hash;
// sorted sets scored 0 index ids overall and per status so scans can page
// lexicographically by id.
package redis

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

func init() {
	database.Register("redis", func(ctx context.Context, cfg *config.Config) (database.Store, error) {
		client, err := NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		return NewStore(client, cfg.Redis.KeyPrefix), nil
	})
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// putScript writes the hash and moves the id between status indexes.
// KEYS: task hash, all index, status index prefix. ARGV: id, fields...
var putScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], 'status')
if old then redis.call('ZREM', KEYS[3] .. old, ARGV[1]) end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('ZADD', KEYS[2], 0, ARGV[1])
redis.call('ZADD', KEYS[3] .. redis.call('HGET', KEYS[1], 'status'), 0, ARGV[1])
return 1
`)

// updateScript sets fields only when the hash exists. Returns the full hash
// or an empty array when the task is absent.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {} end
local old = redis.call('HGET', KEYS[1], 'status')
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
local new = redis.call('HGET', KEYS[1], 'status')
if old ~= new then
  redis.call('ZREM', KEYS[3] .. old, ARGV[1])
  redis.call('ZADD', KEYS[3] .. new, 0, ARGV[1])
end
return redis.call('HGETALL', KEYS[1])
`)

var deleteScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], 'status')
if old then redis.call('ZREM', KEYS[3] .. old, ARGV[1]) end
redis.call('ZREM', KEYS[2], ARGV[1])
return redis.call('DEL', KEYS[1])
`)

// Store implements database.Store on Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ database.Store = (*Store)(nil)

// NewStore creates a Store whose keys all start with prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) taskKey(id string) string { return s.prefix + "task:" + id }
func (s *Store) indexKey() string { return s.prefix + "tasks" }
func (s *Store) statusPrefix() string { return s.prefix + "tasks:status:" }
func (s *Store) statusKey(st task.Status) string { return s.statusPrefix() + string(st) }

func (s *Store) keys(id string) []string {
	return []string{s.taskKey(id), s.indexKey(), s.statusPrefix()}
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	fields, err := s.client.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	t, err := fromHash(fields)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	args := []any{t.ID,
		"id", t.ID,
		"title", t.Title,
		"description", t.Description,
		"status", string(t.Status),
		"createdAt", formatTime(t.CreatedAt),
		"updatedAt", formatTime(t.UpdatedAt),
	}
	if err := putScript.Run(ctx, s.client, s.keys(t.ID), args...).Err(); err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	args := []any{id, "updatedAt", formatTime(u.UpdatedAt)}
	if u.Title != nil {
		args = append(args, "title", *u.Title)
	}
	if u.Description != nil {
		args = append(args, "description", *u.Description)
	}
	if u.Status != nil {
		args = append(args, "status", string(*u.Status))
	}

	res, err := updateScript.Run(ctx, s.client, s.keys(id), args...).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	t, err := fromHash(fields)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := deleteScript.Run(ctx, s.client, s.keys(id), id).Err(); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ScanTasks reads ids from the matching index with ZRANGE BYLEX and loads
// their hashes in one pipeline.
func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	limit := database.PageLimit(in.Limit)
	index := s.indexKey()
	if in.Status != nil {
		index = s.statusKey(*in.Status)
	}

	start := "-"
	if in.Cursor != "" {
		after, err := decodeCursor(in.Cursor)
		if err != nil {
			return database.Page{}, err
		}
		start = "(" + after
	}

	ids, err := s.client.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:   index,
		Start: start,
		Stop:  "+",
		ByLex: true,
		Count: int64(limit + 1),
	}).Result()
	if err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", err)
	}

	more := len(ids) > limit
	if more {
		ids = ids[:limit]
	}

	page := database.Page{Items: make([]task.Task, 0, len(ids))}
	if len(ids) > 0 {
		cmds := make([]*redis.MapStringStringCmd, len(ids))
		if _, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = p.HGetAll(ctx, s.taskKey(id))
			}
			return nil
		}); err != nil {
			return database.Page{}, fmt.Errorf("scan tasks: %w", err)
		}
		for _, cmd := range cmds {
			fields := cmd.Val()
			if len(fields) == 0 {
				continue
			}
			t, err := fromHash(fields)
			if err != nil {
				return database.Page{}, err
			}
			page.Items = append(page.Items, t)
		}
	}

	if more {
		page.Next = encodeCursor(ids[len(ids)-1])
	}
	return page, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func fromHash(h map[string]string) (task.Task, error) {
	created, err := time.Parse(time.RFC3339Nano, h["createdAt"])
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %s createdAt: %w", database.ErrCorruptRecord, h["id"], err)
	}
	updated, err := time.Parse(time.RFC3339Nano, h["updatedAt"])
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %s updatedAt: %w", database.ErrCorruptRecord, h["id"], err)
	}
	return task.Task{
		ID:          h["id"],
		Title:       h["title"],
		Description: h["description"],
		Status:      task.Status(h["status"]),
		CreatedAt:   created.UTC(),
		UpdatedAt:   updated.UTC(),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(c string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("%w %q", database.ErrInvalidCursor, c)
	}
	return string(b), nil
}
