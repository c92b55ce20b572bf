//go:build integration

// Package integration_test runs API-level tests against a real PostgreSQL database.
// Requires: docker compose services (postgres) running.
// Run with: go test -tags=integration ./tests/integration/...
package integration_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	tbhttp "github.com/Strob0t/taskboard/internal/adapter/http"
	"github.com/Strob0t/taskboard/internal/adapter/postgres"
	"github.com/Strob0t/taskboard/internal/adapter/ristretto"
	"github.com/Strob0t/taskboard/internal/adapter/ws"
	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/middleware"
	"github.com/Strob0t/taskboard/internal/resilience"
	"github.com/Strob0t/taskboard/internal/service"
)

var (
	testServer *httptest.Server
	testPool   *pgxpool.Pool
	testDSN    string
	testHub    *ws.Hub
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	testDSN = os.Getenv("DATABASE_URL")
	if testDSN == "" {
		testDSN = config.Defaults().Postgres.DSN
	}

	cfg := config.Defaults()
	cfg.Postgres.DSN = testDSN

	if err := postgres.RunMigrations(ctx, testDSN); err != nil {
		fmt.Fprintf(os.Stderr, "migrations failed: %v\n", err)
		os.Exit(1)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to postgres: %v\n", err)
		os.Exit(1)
	}
	testPool = pool

	idem, err := ristretto.New(1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idempotency cache: %v\n", err)
		os.Exit(1)
	}

	// Real router over the real store, wrapped like the server wraps it.
	store := resilience.NewStore(postgres.NewStore(pool),
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout),
		resilience.NewRetry(cfg.Retry.MaxAttempts, cfg.Retry.InitialInterval, cfg.Retry.MaxInterval),
	)
	hub := ws.NewHub(nil)
	testHub = hub
	taskSvc := service.NewTaskService(store, service.WithBroadcaster(hub), service.WithPageSize(3))

	handlers := &tbhttp.Handlers{
		Tasks:       taskSvc,
		Backend:     "postgres",
		Environment: "test",
	}
	r := tbhttp.NewRouter(handlers, tbhttp.RouterOptions{
		CORSOrigin:     "*",
		RequestTimeout: 10 * time.Second,
		RateLimiter:    middleware.NewRateLimiter(1000, 1000),
		Idempotency:    idem,
		IdempotencyTTL: time.Minute,
		Events:         hub.HandleWS,
	})

	testServer = httptest.NewServer(r)

	cleanDB(pool)

	code := m.Run()

	cleanDB(pool)
	testServer.Close()
	idem.Close()
	pool.Close()

	os.Exit(code)
}

func cleanDB(pool *pgxpool.Pool) {
	_, _ = pool.Exec(context.Background(), "DELETE FROM tasks")
}
