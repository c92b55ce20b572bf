package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	tbhttp "github.com/Strob0t/taskboard/internal/adapter/http"
	tbmcp "github.com/Strob0t/taskboard/internal/adapter/mcp"
	tbnats "github.com/Strob0t/taskboard/internal/adapter/nats"
	tbotel "github.com/Strob0t/taskboard/internal/adapter/otel"
	"github.com/Strob0t/taskboard/internal/adapter/ws"
	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/logger"
	"github.com/Strob0t/taskboard/internal/middleware"
	"github.com/Strob0t/taskboard/internal/service"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"config_file", cfgPath,
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"backend", cfg.Storage.Backend,
		"update_mode", cfg.Tasks.UpdateMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := tbotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := tbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	slog.Info("task store ready", "backend", cfg.Storage.Backend)

	var queue *tbnats.Queue
	if cfg.NATS.Events || cfg.Idempotency.Bucket != "" {
		queue, err = tbnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Drain() }()
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// --- Services ---

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin))

	newID, err := service.NewIDGenerator(cfg.Tasks.IDFormat)
	if err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	opts := []service.TaskOption{
		service.WithIDGenerator(newID),
		service.WithUpdateMode(task.UpdateMode(cfg.Tasks.UpdateMode)),
		service.WithPageSize(cfg.Storage.PageSize),
		service.WithBroadcaster(hub),
		service.WithMetrics(metrics),
	}
	if queue != nil && cfg.NATS.Events {
		opts = append(opts, service.WithQueue(queue))
	}
	taskSvc := service.NewTaskService(store, opts...)

	// --- HTTP ---

	routerOpts := tbhttp.RouterOptions{
		ServiceName:    cfg.OTEL.ServiceName,
		CORSOrigin:     cfg.Server.CORSOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimiter:    middleware.NewRateLimiterFromConfig(cfg.Rate),
		Events:         hub.HandleWS,
	}
	if cfg.Idempotency.Enabled {
		idem, closeIdem, err := newIdempotencyCache(ctx, cfg.Idempotency, queue)
		if err != nil {
			return fmt.Errorf("idempotency cache: %w", err)
		}
		defer closeIdem()
		routerOpts.Idempotency = idem
		routerOpts.IdempotencyTTL = cfg.Idempotency.TTL
	}
	if cfg.MCP.Enabled {
		mcpSrv := tbmcp.NewServer(
			tbmcp.ServerConfig{Name: "taskboard", Version: version, APIKey: cfg.MCP.APIKey},
			tbmcp.ServerDeps{Tasks: taskSvc},
		)
		routerOpts.MCP = mcpSrv.Handler()
	}

	handlers := &tbhttp.Handlers{
		Tasks:       taskSvc,
		Backend:     cfg.Storage.Backend,
		Environment: cfg.Server.Environment,
	}
	r := tbhttp.NewRouter(handlers, routerOpts)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if rl := routerOpts.RateLimiter; rl != nil && cfg.Rate.CleanupInterval > 0 {
		g.Go(func() error {
			return rl.Run(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Close()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// originPatterns converts the CORS origin into WebSocket origin patterns.
func originPatterns(corsOrigin string) []string {
	if corsOrigin == "" || corsOrigin == "*" {
		return nil
	}
	return []string{hostOf(corsOrigin)}
}
