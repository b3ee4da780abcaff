// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Shivanand-hulikatti/event-hosting/internal/capacity"
	"github.com/Shivanand-hulikatti/event-hosting/internal/config"
	"github.com/Shivanand-hulikatti/event-hosting/internal/database"
	"github.com/Shivanand-hulikatti/event-hosting/internal/handler"
	"github.com/Shivanand-hulikatti/event-hosting/internal/repository"
	"github.com/Shivanand-hulikatti/event-hosting/internal/service"
	"github.com/Shivanand-hulikatti/event-hosting/internal/stats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// ── 1. Storage ────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Stats service ──────────────────────────────────────────────────
	var views service.ViewCounter = stats.Nop{}
	if cfg.Stats.Enabled() {
		v := stats.NewViews(
			stats.NewClient(cfg.Stats.URL, &http.Client{Timeout: cfg.Stats.Timeout}),
			stats.ViewsOptions{
				App:       cfg.Stats.App,
				Timeout:   cfg.Stats.Timeout,
				Lookback:  cfg.Stats.Lookback,
				CacheSize: cfg.Stats.CacheSize,
				CacheTTL:  cfg.Stats.CacheTTL,
			}, log)
		defer v.Wait()
		views = v
		log.Info("stats service configured", zap.String("url", cfg.Stats.URL))
	} else {
		log.Warn("EWM_STATS_URL not set, view counts will be zero")
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	eventSvc := service.NewEventService(store, views, log)
	requestSvc := service.NewRequestService(store, capacity.NewAllocator(log), log)
	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, log),
		handler.NewRequestHandler(requestSvc, log),
		log,
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		store := repository.NewMemoryStore()
		for id := int64(1); id <= int64(cfg.SeedUsers); id++ {
			store.AddUser(id)
		}
		for id := int64(1); id <= int64(cfg.SeedCategories); id++ {
			store.AddCategory(id)
		}
		log.Info("using in-memory store",
			zap.Int("users", cfg.SeedUsers),
			zap.Int("categories", cfg.SeedCategories))
		return store, func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))
	return repository.NewPostgresStore(pool), pool.Close, nil
}
