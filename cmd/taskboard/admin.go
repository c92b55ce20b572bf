package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/taskboard/internal/adapter/dynamodb"
	tbnats "github.com/Strob0t/taskboard/internal/adapter/nats"
	"github.com/Strob0t/taskboard/internal/adapter/postgres"
	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/logger"
	"github.com/Strob0t/taskboard/internal/port/messagequeue"
	"github.com/Strob0t/taskboard/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "create-table":
		return runAdminCreateTable(args[1:])
	case "list":
		return runAdminList(args[1:])
	case "get":
		return runAdminGet(args[1:])
	case "delete":
		return runAdminDelete(args[1:])
	case "events":
		return runAdminEvents(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: taskboard admin <command> [options]

Commands:
  migrate          Apply PostgreSQL migrations (--down N rolls back, --status prints the version)
  create-table     Create the DynamoDB table if it does not exist
  list             List tasks (--status TODO|IN_PROGRESS|COMPLETED)
  get              Show one task (--id)
  delete           Delete one task (--id)
  events           Print task change events from NATS until interrupted
  help             Show this help message

Every command accepts --config to point at a YAML file.
Output is a table on a terminal and JSON otherwise.

Examples:
  taskboard admin migrate
  taskboard admin list --status TODO
  taskboard admin get --id 7f1c2f0e-5d0b-4a5e-9d2b-0c1f1b7e9a10
  taskboard admin list | jq '.[].title'
`)
}

// loadAdminConfig parses the shared --config flag plus any command flags
// registered on fs, then loads the config with logging to stderr.
func loadAdminConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	configPath := fs.String("config", config.DefaultConfigFile, "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, _ := logger.NewWithWriter(os.Stderr, config.Logging{Level: "warn", Service: cfg.Logging.Service})
	slog.SetDefault(log)
	return cfg, nil
}

func loadAdminService(ctx context.Context, cfg *config.Config) (*service.TaskService, func(), error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []service.TaskOption{
		service.WithUpdateMode(task.UpdateMode(cfg.Tasks.UpdateMode)),
		service.WithPageSize(cfg.Storage.PageSize),
	}
	cleanup := func() { _ = store.Close() }

	if cfg.NATS.Events {
		queue, err := tbnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("nats: %w", err)
		}
		opts = append(opts, service.WithQueue(queue))
		cleanup = func() {
			_ = queue.Drain()
			_ = store.Close()
		}
	}
	return service.NewTaskService(store, opts...), cleanup, nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations")
	status := fs.Bool("status", false, "print the current migration version")
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch {
	case *status:
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Printf("migration version: %d\n", v)
		return nil
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *down)
		return nil
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Migrations applied")
		return nil
	}
}

func runAdminCreateTable(args []string) error {
	fs := flag.NewFlagSet("create-table", flag.ContinueOnError)
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := dynamodb.NewClient(ctx, cfg.DynamoDB, cfg.Server.IsDevelopment())
	if err != nil {
		return err
	}
	if err := dynamodb.NewStore(client, cfg.DynamoDB.Table).EnsureTable(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Table %s is ready\n", cfg.DynamoDB.Table)
	return nil
}

func runAdminList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	statusFlag := fs.String("status", "", "only list tasks with this status")
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}

	var status *task.Status
	if *statusFlag != "" {
		st, err := task.ParseStatus(*statusFlag)
		if err != nil {
			return err
		}
		status = &st
	}

	ctx := context.Background()
	svc, cleanup, err := loadAdminService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tasks, err := svc.List(ctx, status)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	return printTasks(os.Stdout, isTerminal(os.Stdout), tasks)
}

func runAdminGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	ctx := context.Background()
	svc, cleanup, err := loadAdminService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := svc.Get(ctx, *id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	return printTasks(os.Stdout, isTerminal(os.Stdout), []task.Task{*t})
}

func runAdminDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	ctx := context.Background()
	svc, cleanup, err := loadAdminService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Delete(ctx, *id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Task %s deleted\n", *id)
	return nil
}

func runAdminEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	cfg, err := loadAdminConfig(fs, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := tbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	enc := json.NewEncoder(os.Stdout)
	cancel, err := queue.Subscribe(ctx, messagequeue.SubjectTaskAll, func(_ context.Context, subject string, data []byte) error {
		return enc.Encode(struct {
			Subject string          `json:"subject"`
			Event   json.RawMessage `json:"event"`
		}{subject, data})
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()

	fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl-C to stop)\n", messagequeue.SubjectTaskAll)
	<-ctx.Done()
	return nil
}

// printTasks writes tasks as an aligned table when table is set, JSON otherwise.
func printTasks(w io.Writer, table bool, tasks []task.Task) error {
	if !table {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tUPDATED")
	for i := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			tasks[i].ID, tasks[i].Status, tasks[i].Title, tasks[i].UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
