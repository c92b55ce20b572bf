package ristretto

import (
	"testing"

	"github.com/Strob0t/taskboard/internal/port/cache/cachetest"
)

func TestCacheCompliance(t *testing.T) {
	c, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	cachetest.Run(t, c)
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
