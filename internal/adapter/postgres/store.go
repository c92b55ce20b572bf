package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   status = EXCLUDED.status,
		   created_at = EXCLUDED.created_at,
		   updated_at = EXCLUDED.updated_at`,
		t.ID, t.Title, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTask writes the non-nil fields of u. An absent row yields no
// RETURNING row and is reported as nil, nil.
func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE tasks SET
		   title = COALESCE($2, title),
		   description = COALESCE($3, description),
		   status = COALESCE($4, status),
		   updated_at = $5
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, u.Title, u.Description, statusArg(u.Status), u.UpdatedAt)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ScanTasks pages by id (keyset). One extra row is fetched to decide
// whether another page exists.
func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	after, err := decodeCursor(in.Cursor)
	if err != nil {
		return database.Page{}, err
	}
	limit := database.PageLimit(in.Limit)

	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE ($1::text IS NULL OR status = $1) AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		statusArg(in.Status), after, limit+1)
	if err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", err)
	}
	defer rows.Close()

	page := database.Page{Items: make([]task.Task, 0, limit)}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return database.Page{}, fmt.Errorf("scan tasks: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	if err := rows.Err(); err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.Next = encodeCursor(page.Items[limit-1].ID)
	}
	return page, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
