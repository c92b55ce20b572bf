package database

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Strob0t/taskboard/internal/config"
)

// Factory opens a Store using the loaded configuration.
type Factory func(ctx context.Context, cfg *config.Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a store backend available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("database: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// Open creates the Store registered under name.
func Open(ctx context.Context, name string, cfg *config.Config) (Store, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("database: unknown backend %q (available: %v)", name, Available())
	}
	return factory(ctx, cfg)
}

// Available returns the names of all registered backends, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
