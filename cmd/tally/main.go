package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/config"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/storage"
	"tally/internal/store"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	kv, err := openBackend(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("Storage close error", "error", err)
		}
	}()

	st := store.New()

	var opts []storage.Option
	if cfg.PersistDebounce > 0 {
		opts = append(opts, storage.WithPersistDebounce(cfg.PersistDebounce))
	}
	gateway := storage.NewGateway(kv, st, opts...)
	gateway.Init(context.Background())
	st.Subscribe(gateway.Subscriber())
	defer gateway.Flush()

	srv := apphttp.NewServer(":"+cfg.Port, st, gateway)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tally server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// openBackend constructs the configured KV backend.
func openBackend(cfg *config.Config, logger *applog.Logger) (storage.KV, error) {
	switch cfg.DataBackend {
	case "sqlite":
		kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
		return kv, nil
	default:
		logger.Info("Initialized memory backend")
		return storage.NewMemoryKV(), nil
	}
}
