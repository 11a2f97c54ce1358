package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tender/infrastructure/storage/memory"
	storemw "github.com/ahrav/go-tender/infrastructure/storage/middleware"
	"github.com/ahrav/go-tender/infrastructure/storage/mongostore"
	"github.com/ahrav/go-tender/infrastructure/storage/sqlstore"
	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/ports"
)

// openStore connects the configured backend and wraps it in the store
// middleware chain.
func openStore(ctx context.Context, cfg application.StoreConfig, metrics ports.MetricsCollector) (ports.Store, error) {
	var base ports.Store
	switch cfg.Driver {
	case "memory":
		base = memory.New()
	case "sqlite", "postgres":
		driver := sqlstore.Driver(cfg.Driver)
		db, err := sqlstore.Open(ctx, driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		base = sqlstore.New(db, driver)
	case "mongo":
		s, err := mongostore.Connect(ctx, cfg.DSN, cfg.Database, cfg.Timeout())
		if err != nil {
			return nil, err
		}
		base = s
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	return storemw.Wrap(base, storeChain(cfg, metrics)...), nil
}

// storeChain lists the store middleware, outermost first. Tracing and
// metrics see one logical call; the breaker sees the retried outcome; the
// limiter and timeout apply to every attempt.
func storeChain(cfg application.StoreConfig, metrics ports.MetricsCollector) []storemw.Middleware {
	chain := []storemw.Middleware{
		storemw.TracingMiddleware("tenderd"),
		storemw.MetricsMiddleware(metrics),
	}
	if cb := cfg.CircuitBreaker; cb.MaxFailures > 0 {
		breaker := storemw.NewCircuitBreaker(cb.MaxFailures, time.Duration(cb.CooldownSeconds)*time.Second)
		chain = append(chain, storemw.CircuitBreakerMiddleware(breaker, metrics))
	}
	if r := cfg.Retry; r.MaxAttempts > 1 {
		chain = append(chain, storemw.RetryMiddleware(
			r.MaxAttempts-1,
			time.Duration(r.InitialWait)*time.Millisecond,
			time.Duration(r.MaxWait)*time.Millisecond,
		))
	}
	if rl := cfg.RateLimit; rl.RequestsPerSecond > 0 {
		burst := max(rl.Burst, 1)
		chain = append(chain, storemw.RateLimitMiddleware(rate.Limit(rl.RequestsPerSecond), burst))
	}
	return append(chain, storemw.TimeoutMiddleware(cfg.Timeout()))
}
