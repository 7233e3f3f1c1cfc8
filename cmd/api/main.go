package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/app/apiapp"
	"github.com/ivankudzin/oneclick/internal/config"
	"github.com/ivankudzin/oneclick/internal/infra/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return err
	}
	log.Info("oneclick api starting",
		zap.String("env", cfg.Env),
		zap.String("store", cfg.Store.Driver),
		zap.String("gateway_environment", cfg.Gateway.Environment),
		zap.String("callback_base_url", cfg.Callback.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := apiapp.New(ctx, cfg, log)
	if err != nil {
		log.Error("create api app", zap.Error(err))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("api server failed", zap.Error(err))
		}
		shutdown(app, log)
		return err
	case <-ctx.Done():
		log.Info("shutting down api server")
		shutdown(app, log)
		return nil
	}
}

// shutdown stops the sweeper, drains in-flight requests and closes the stores.
func shutdown(app *apiapp.App, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		log.Error("shutdown api app", zap.Error(err))
	}
}

func configPath() string {
	if path := os.Getenv("APP_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
