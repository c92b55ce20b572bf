package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	tbnats "github.com/Strob0t/taskboard/internal/adapter/nats"
	"github.com/Strob0t/taskboard/internal/adapter/natskv"
	"github.com/Strob0t/taskboard/internal/adapter/ristretto"
	"github.com/Strob0t/taskboard/internal/adapter/tiered"
	"github.com/Strob0t/taskboard/internal/config"
	"github.com/Strob0t/taskboard/internal/port/cache"
	"github.com/Strob0t/taskboard/internal/port/database"
	"github.com/Strob0t/taskboard/internal/resilience"
)

// l1BackfillTTL bounds how long L2 hits stay in the in-process cache.
const l1BackfillTTL = 10 * time.Minute

// openStore opens the configured backend and wraps it with the circuit
// breaker and retry layers.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	inner, err := database.Open(ctx, cfg.Storage.Backend, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	var breaker *resilience.Breaker
	if cfg.Breaker.MaxFailures > 0 {
		breaker = resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	}
	var retry *resilience.Retry
	if cfg.Retry.MaxAttempts > 1 {
		retry = resilience.NewRetry(cfg.Retry.MaxAttempts, cfg.Retry.InitialInterval, cfg.Retry.MaxInterval)
	}
	return resilience.NewStore(inner, breaker, retry), nil
}

// newIdempotencyCache builds the replay cache: ristretto in process, backed
// by a NATS KV bucket when one is configured.
func newIdempotencyCache(ctx context.Context, cfg config.Idempotency, queue *tbnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.L1MaxSizeMB)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Bucket == "" || queue == nil {
		return l1, l1.Close, nil
	}

	kv, err := queue.KeyValue(ctx, cfg.Bucket, cfg.TTL)
	if err != nil {
		l1.Close()
		return nil, nil, fmt.Errorf("kv bucket %s: %w", cfg.Bucket, err)
	}
	return tiered.New(l1, natskv.NewCache(kv), l1BackfillTTL), l1.Close, nil
}

// hostOf returns the host[:port] of an origin URL, or origin itself when it
// does not parse as one.
func hostOf(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
