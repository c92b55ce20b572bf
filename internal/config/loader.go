package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskboard.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.Port, "TASKBOARD_PORT")
	setString(&cfg.Server.CORSOrigin, "TASKBOARD_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "TASKBOARD_REQUEST_TIMEOUT")
	setString(&cfg.Server.Environment, "TASKBOARD_ENV")

	// Storage
	setString(&cfg.Storage.Backend, "TASKBOARD_STORE")
	setInt(&cfg.Storage.PageSize, "TASKBOARD_PAGE_SIZE")
	setString(&cfg.DynamoDB.Table, "DYNAMODB_TABLE")
	setString(&cfg.DynamoDB.Endpoint, "DYNAMODB_ENDPOINT")
	setString(&cfg.DynamoDB.Region, "AWS_REGION")
	setBool(&cfg.DynamoDB.CreateTable, "TASKBOARD_DYNAMODB_CREATE_TABLE")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TASKBOARD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TASKBOARD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TASKBOARD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TASKBOARD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TASKBOARD_PG_HEALTH_CHECK")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.KeyPrefix, "TASKBOARD_REDIS_PREFIX")
	setString(&cfg.SQLite.Path, "TASKBOARD_SQLITE_PATH")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.KVBucket, "TASKBOARD_NATS_KV_BUCKET")
	setBool(&cfg.NATS.Events, "TASKBOARD_NATS_EVENTS")

	// Tasks
	setString(&cfg.Tasks.UpdateMode, "TASKBOARD_UPDATE_MODE")
	setString(&cfg.Tasks.IDFormat, "TASKBOARD_ID_FORMAT")

	setString(&cfg.Logging.Level, "TASKBOARD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TASKBOARD_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TASKBOARD_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TASKBOARD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TASKBOARD_BREAKER_TIMEOUT")
	setUint(&cfg.Retry.MaxAttempts, "TASKBOARD_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.InitialInterval, "TASKBOARD_RETRY_INITIAL_INTERVAL")
	setDuration(&cfg.Retry.MaxInterval, "TASKBOARD_RETRY_MAX_INTERVAL")
	setFloat64(&cfg.Rate.RequestsPerSecond, "TASKBOARD_RATE_RPS")
	setInt(&cfg.Rate.Burst, "TASKBOARD_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "TASKBOARD_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TASKBOARD_RATE_MAX_IDLE_TIME")

	// Idempotency
	setBool(&cfg.Idempotency.Enabled, "TASKBOARD_IDEMPOTENCY_ENABLED")
	setInt64(&cfg.Idempotency.L1MaxSizeMB, "TASKBOARD_IDEMPOTENCY_L1_SIZE_MB")
	setString(&cfg.Idempotency.Bucket, "TASKBOARD_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "TASKBOARD_IDEMPOTENCY_TTL")

	// Telemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "TASKBOARD_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "TASKBOARD_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "TASKBOARD_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "TASKBOARD_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("server.environment must be %q or %q", EnvDevelopment, EnvProduction)
	}
	if !slices.Contains(Backends, cfg.Storage.Backend) {
		return fmt.Errorf("storage.backend %q is not one of %v", cfg.Storage.Backend, Backends)
	}
	if cfg.Storage.PageSize < 1 {
		return errors.New("storage.page_size must be >= 1")
	}

	switch cfg.Storage.Backend {
	case "dynamodb":
		if cfg.DynamoDB.Table == "" {
			return errors.New("dynamodb.table is required")
		}
		if cfg.DynamoDB.Region == "" {
			return errors.New("dynamodb.region is required")
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required")
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	case "natskv":
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required")
		}
		if cfg.NATS.KVBucket == "" {
			return errors.New("nats.kv_bucket is required")
		}
	}

	switch cfg.Tasks.UpdateMode {
	case "replace", "merge":
	default:
		return fmt.Errorf("tasks.update_mode %q must be replace or merge", cfg.Tasks.UpdateMode)
	}
	switch cfg.Tasks.IDFormat {
	case "uuid", "nanoid":
	default:
		return fmt.Errorf("tasks.id_format %q must be uuid or nanoid", cfg.Tasks.IDFormat)
	}

	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Idempotency.Enabled && cfg.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be > 0")
	}
	if cfg.Idempotency.Enabled && cfg.Idempotency.L1MaxSizeMB < 1 {
		return errors.New("idempotency.l1_max_size_mb must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 0); err == nil {
			*dst = uint(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
