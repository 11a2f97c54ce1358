// Command tenderd serves the tender evaluation API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/infrastructure/scoring"
	api "github.com/ahrav/go-tender/internal/api/http"
	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/domain"
	"github.com/ahrav/go-tender/internal/ports"
	"github.com/ahrav/go-tender/internal/session"
)

const roleCacheTTL = 5 * time.Minute

func main() {
	var (
		configPath = flag.String("config", os.Getenv("TENDER_CONFIG"), "Path to the YAML config file")
		envFile    = flag.String("env", ".env", "Dotenv file loaded before the config")
		bootstrap  = flag.String("bootstrap-government", "", "User id to register as a government user at startup")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *bootstrap); err != nil {
		fmt.Fprintf(os.Stderr, "tenderd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, bootstrapUser string) error {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewPrometheusMetrics(reg)

	store, err := openStore(ctx, cfg.Store, metrics)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	if bootstrapUser != "" {
		if err := store.PutProfile(ctx, bootstrapUser, domain.RoleGovernment, domain.BidderProfile{}); err != nil {
			return fmt.Errorf("bootstrap %s: %w", bootstrapUser, err)
		}
	}

	svc, reconciler, err := buildServices(store, cfg, logger, metrics)
	if err != nil {
		return err
	}
	roles, err := session.NewRoleCache(store, roleCacheTTL)
	if err != nil {
		return err
	}
	handler, err := api.NewRouter(svc, roles, api.Config{
		CORSOrigins:    cfg.Server.CORSOrigins,
		Gatherer:       reg,
		Logger:         logger,
		RequestTimeout: cfg.Store.Timeout() * 2,
	})
	if err != nil {
		return err
	}

	if cfg.Reconcile.Enabled {
		c, err := scheduleReconcile(ctx, cfg.Reconcile.Schedule, reconciler, logger)
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	return serve(ctx, cfg.Server, handler, logger)
}

func newLogger(cfg application.LogConfig) (*slog.Logger, error) {
	level, err := application.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
}

func buildServices(
	store ports.Store,
	cfg application.Config,
	logger *slog.Logger,
	metrics *middleware.PrometheusMetrics,
) (api.Services, *application.ScoreReconciler, error) {
	agg, err := scoring.NewWeightedSumAggregator(cfg.Scoring.Aggregator())
	if err != nil {
		return api.Services{}, nil, err
	}
	opts := []application.Option{
		application.WithAggregator(agg),
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithOutcomeSink(middleware.NewOutcomeObserver(logger, metrics)),
	}

	var svc api.Services
	if svc.Tenders, err = application.NewTenderService(store, cfg.Scoring.DefaultThreshold, opts...); err != nil {
		return api.Services{}, nil, err
	}
	if svc.Evaluations, err = application.NewEvaluationService(store, opts...); err != nil {
		return api.Services{}, nil, err
	}
	if svc.Shortlists, err = application.NewShortlistService(store, opts...); err != nil {
		return api.Services{}, nil, err
	}
	if svc.Awards, err = application.NewAwardService(store, opts...); err != nil {
		return api.Services{}, nil, err
	}
	if svc.Leaderboard, err = application.NewLeaderboardService(store, opts...); err != nil {
		return api.Services{}, nil, err
	}
	reconciler, err := application.NewScoreReconciler(store, cfg.Reconcile.Concurrency, opts...)
	if err != nil {
		return api.Services{}, nil, err
	}
	return svc, reconciler, nil
}

// scheduleReconcile runs the reconciler on schedule until ctx ends. Runs do
// not overlap: a tick that fires while the previous run is busy is skipped.
func scheduleReconcile(
	ctx context.Context,
	schedule string,
	reconciler *application.ScoreReconciler,
	logger *slog.Logger,
) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		report, err := reconciler.Reconcile(ctx)
		if err != nil {
			logger.Error("score reconciliation failed", "error", err, "failed", report.Failed)
			return
		}
		logger.Info("score reconciliation finished",
			"tenders", report.Tenders,
			"checked", report.Checked,
			"rewritten", report.Rewritten,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

func serve(ctx context.Context, cfg application.ServerConfig, handler nethttp.Handler, logger *slog.Logger) error {
	srv := &nethttp.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSeconds)*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
