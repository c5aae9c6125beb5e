package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autoparts/internal/config"
	"autoparts/internal/database"
	"autoparts/internal/inventory"
	"autoparts/internal/logger"
	"autoparts/internal/metrics"
	"autoparts/internal/models"
	"autoparts/internal/repositories"
	"autoparts/internal/server"
	"autoparts/internal/services"
	"autoparts/internal/storage"
	"autoparts/internal/validation"
	"autoparts/pkg/rabbitmq"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	models.PasswordCost = cfg.BcryptCost

	// --- Repositories ---
	var (
		partRepo repositories.PartRepository
		userRepo repositories.UserRepository
	)
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory repositories; data is lost on restart")
		partRepo = repositories.NewMockPartRepository()
		userRepo = repositories.NewMockUserRepository()
	} else {
		db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN, cfg.DBAutoMigrate, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(db); err != nil {
				log.Error("error closing database", zap.Error(err))
			}
		}()
		partRepo = repositories.NewGORMPartRepository(db)
		userRepo = repositories.NewGORMUserRepository(db)
	}

	// --- Image storage ---
	diskFs, err := storage.NewDiskFs(cfg.UploadDir)
	if err != nil {
		return err
	}
	images := storage.NewLocalStore(diskFs, cfg.UploadPublicPath, cfg.UploadMaxBytes, log)

	// --- Services ---
	var validatorOpts []validation.Option
	if cfg.StrictCategories {
		validatorOpts = append(validatorOpts, validation.WithCategories(inventory.CategoryValues()))
	}
	v := validation.New(validatorOpts...)
	m := metrics.New()

	partOpts := []services.PartOption{services.WithMetrics(m)}
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		partOpts = append(partOpts, services.WithEvents(mqClient))

		if err := mqClient.ConsumePartEvents(rabbitmq.LogPartEvent(log.Named("events"), time.Minute)); err != nil {
			log.Error("failed to start part event consumer", zap.Error(err))
		}
	}

	authService := services.NewAuthService(userRepo, v, cfg.JWTSecret, cfg.JWTExpiresIn, log)
	partService := services.NewPartService(partRepo, images, v, log, partOpts...)

	if cfg.UploadSweepOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		removed, err := partService.ReconcileImages(ctx)
		cancel()
		if err != nil {
			log.Error("image sweep failed", zap.Error(err))
		} else {
			log.Info("image sweep finished", zap.Int("removed", removed))
		}
	}

	app := server.NewApp(server.Deps{
		Config:  cfg,
		Log:     log,
		Auth:    authService,
		Parts:   partService,
		Images:  images,
		Metrics: m,
	})

	// --- Start HTTP Server ---
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.AppPort), zap.String("env", cfg.Env))
		errCh <- app.Listen(cfg.AppPort)
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}
