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

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	httpHandlers "github.com/SerpentAI/selenium-respectful/internal/adapters/http/handlers"
	httpMiddleware "github.com/SerpentAI/selenium-respectful/internal/adapters/http/middleware"
	"github.com/SerpentAI/selenium-respectful/internal/adapters/navigator/httpnav"
	memorystorage "github.com/SerpentAI/selenium-respectful/internal/adapters/storage/memory"
	redisstorage "github.com/SerpentAI/selenium-respectful/internal/adapters/storage/redis"
	"github.com/SerpentAI/selenium-respectful/internal/config"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
	"github.com/SerpentAI/selenium-respectful/internal/core/services"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	storage, closeFn, err := initStorage(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	defer closeFn()

	registry, err := services.NewRegistryService(storage)
	if err != nil {
		logger.Fatal("failed to create registry", zap.Error(err))
	}
	ledger, err := services.NewLedgerService(storage)
	if err != nil {
		logger.Fatal("failed to create ledger", zap.Error(err))
	}

	navigator := httpnav.New(nil)
	admission, err := services.NewAdmissionService(storage, navigator, cfg.Limiter.SafetyThreshold)
	if err != nil {
		logger.Fatal("failed to create admission controller", zap.Error(err))
	}

	gate, err := services.NewGateService(admission, services.RetryPolicy{
		Interval: cfg.Limiter.WaitInterval,
		Jitter:   cfg.Limiter.WaitJitter,
		Deadline: cfg.Limiter.WaitDeadline,
	}, nil, logger)
	if err != nil {
		logger.Fatal("failed to create wait gate", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(httpMiddleware.NewThrottle(50, 100, logger))
	r.Group(func(r chi.Router) {
		httpHandlers.NewRealmsHandler(registry, ledger, logger).Routes(r)
		httpHandlers.NewAdmissionsHandler(gate, logger).Routes(r)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()
	logger.Info("admission service listening", zap.String("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func initStorage(cfg config.StorageConfig, logger *zap.Logger) (ports.Storage, func(), error) {
	switch cfg.Type {
	case "redis":
		storage, err := redisstorage.New(redisstorage.Config{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				logger.Warn("failed to close redis storage", zap.Error(err))
			}
		}, nil
	case "memory":
		// Single-process mode, useful for local development; quotas are not
		// shared with other peers.
		storage := memorystorage.New(nil)
		return storage, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
