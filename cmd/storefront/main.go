// Command storefront serves the server-rendered storefront in front of the
// parts API.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoparts/internal/config"
	"autoparts/internal/logger"
	"autoparts/internal/web"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadStorefront()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	views, err := web.NewViews()
	if err != nil {
		return err
	}
	app := web.NewApp(web.NewStorefront(cfg, log), views, os.Stdout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting storefront", zap.String("addr", cfg.Port), zap.String("api", cfg.APIBaseURL))
		errCh <- app.Listen(cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("storefront failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down storefront")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
