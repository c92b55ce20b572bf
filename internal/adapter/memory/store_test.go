package memory_test

import (
	"testing"

	"github.com/Strob0t/taskboard/internal/adapter/memory"
	"github.com/Strob0t/taskboard/internal/port/database"
	"github.com/Strob0t/taskboard/internal/port/database/storetest"
)

func TestStoreCompliance(t *testing.T) {
	storetest.Run(t, func(*testing.T) database.Store {
		return memory.NewStore()
	})
}

func TestRegistered(t *testing.T) {
	found := false
	for _, name := range database.Available() {
		if name == "memory" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected memory backend to be registered")
	}
}
