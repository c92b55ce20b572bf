// Package cachetest provides the compliance suite for cache.Cache backends.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/taskboard/internal/port/cache"
)

// Run runs the standard compliance suite against c. Keys are namespaced so
// the suite can share a backend with other tests.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "compliance:key", []byte(`{"status":201}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "compliance:key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"status":201}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "compliance:missing")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "compliance:del", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "compliance:del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "compliance:del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "compliance:never"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "compliance:ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "compliance:ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "compliance:ow")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}
