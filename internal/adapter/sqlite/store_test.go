package sqlite

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nalgeon/be"

	"github.com/Strob0t/taskboard/internal/port/database"
	"github.com/Strob0t/taskboard/internal/port/database/storetest"
)

func setupStore(t *testing.T) database.Store {
	t.Helper()
	s, err := Open(memoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreCompliance(t *testing.T) {
	storetest.Run(t, setupStore)
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := Open(path)
	be.Err(t, err, nil)
	want := storetest.Fixture(1, "IN_PROGRESS")
	be.Err(t, s.PutTask(ctx, want), nil)
	be.Err(t, s.Close(), nil)

	s, err = Open(path)
	be.Err(t, err, nil)
	defer func() { _ = s.Close() }()
	got, err := s.GetTask(ctx, want.ID)
	be.Err(t, err, nil)
	be.True(t, got != nil)
	storetest.AssertSame(t, *got, want)
}

func TestPing(t *testing.T) {
	s := setupStore(t)
	be.Err(t, s.Ping(context.Background()), nil)
}

func TestRegistered(t *testing.T) {
	be.True(t, slices.Contains(database.Available(), "sqlite"))
}
