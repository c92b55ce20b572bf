// Package sqlite provides a single-file task store built on GORM and SQLite.
package sqlite

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

const memoryPath = ":memory:"

func init() {
	database.Register("sqlite", func(_ context.Context, cfg *config.Config) (database.Store, error) {
		return Open(cfg.SQLite.Path)
	})
}

// row is the tasks table layout. Timestamps are written explicitly, so
// GORM's automatic time tracking is off.
type row struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Title       string    `gorm:"size:100;not null"`
	Description string    `gorm:"size:500;not null;default:''"`
	Status      string    `gorm:"size:16;not null;index"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (row) TableName() string { return "tasks" }

func toRow(t task.Task) row {
	return row{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func (r row) task() task.Task {
	return task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      task.Status(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// Store implements database.Store using GORM.
type Store struct {
	db *gorm.DB
}

var _ database.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates the schema.
// An empty path or ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = memoryPath
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	if path == memoryPath {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&row{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var r row
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	t := r.task()
	return &t, nil
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	r := toRow(t)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&r).Error; err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTask writes the non-nil fields inside a transaction. Zero affected
// rows means the task is absent.
func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	fields := map[string]any{"updated_at": u.UpdatedAt.UTC()}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}

	var out *task.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&row{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var r row
		if err := tx.First(&r, "id = ?", id).Error; err != nil {
			return err
		}
		t := r.task()
		out = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&row{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ScanTasks pages by id with one row of lookahead.
func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	limit := database.PageLimit(in.Limit)
	q := s.db.WithContext(ctx).Model(&row{}).Order("id").Limit(limit + 1)
	if in.Status != nil {
		q = q.Where("status = ?", string(*in.Status))
	}
	if in.Cursor != "" {
		after, err := decodeCursor(in.Cursor)
		if err != nil {
			return database.Page{}, err
		}
		q = q.Where("id > ?", after)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", err)
	}

	page := database.Page{Items: make([]task.Task, 0, len(rows))}
	for _, r := range rows {
		page.Items = append(page.Items, r.task())
	}
	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.Next = encodeCursor(page.Items[limit-1].ID)
	}
	return page, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
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
