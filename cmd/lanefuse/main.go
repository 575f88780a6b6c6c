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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/app"
	"github.com/kailas-cloud/lanefuse/internal/config"
	logpkg "github.com/kailas-cloud/lanefuse/internal/logger"
	"github.com/kailas-cloud/lanefuse/internal/metrics"
	chiTransport "github.com/kailas-cloud/lanefuse/internal/transport/chi"
	"github.com/kailas-cloud/lanefuse/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, &cfg, logger.With(zap.String("env", env))); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	return nil
}

// serve runs the API until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting lanefuse API server",
		zap.Stringer("version", version.Get()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("codec", cfg.Storage.Codec),
	)

	store, err := app.OpenStore(app.StoreConfig{
		Driver:   cfg.Database.Driver,
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.Register()
	svc, err := app.Build(store, app.Options{
		Codec:       cfg.Storage.Codec,
		KeyPrefix:   cfg.Storage.KeyPrefix,
		LaneTTL:     cfg.Storage.LaneTTL(),
		RunTTL:      cfg.Storage.RunTTL(),
		DocumentTTL: cfg.Storage.DocumentTTL(),
		MaxParallel: cfg.Ingest.MaxParallel,
		LaneTimeout: time.Duration(cfg.Ingest.LaneTimeoutSec) * time.Second,
		Misses:      metrics.StoreMissesTotal,
	}, logger)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(chiTransport.Recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.NewServer(svc.Lanes, svc.Fusion, svc.Runs, svc.Health, cfg.Fusion.Recipe(), logger).Routes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err == nil {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
