package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/localphoto/backend/internal/api"
	"github.com/localphoto/backend/internal/auth"
	"github.com/localphoto/backend/internal/config"
	"github.com/localphoto/backend/internal/domain"
	"github.com/localphoto/backend/internal/geoindex"
	"github.com/localphoto/backend/internal/repository"
	"github.com/localphoto/backend/internal/storage"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting LocalPhoto API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	// Repositories: Postgres when configured, in-memory otherwise.
	var (
		submissionRepo domain.SubmissionRepository
		userRepo       domain.UserRepository
		pool           *pgxpool.Pool
	)
	if cfg.Database.URL != "" {
		if err := repository.RunMigrations(ctx, cfg.Database.URL); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		pool, err = initDatabase(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("Connected to database")

		pg := repository.NewPostgresRepository(pool)
		submissionRepo = pg
		userRepo = pg
	} else {
		logger.Warn("DATABASE_URL not set - using in-memory store, data will not survive restarts")
		mem := repository.NewMemoryRepository(geoindex.NewGridIndex(1.0))
		submissionRepo = mem
		userRepo = mem
	}

	fileStorage, err := initStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	clock := domain.SystemClock()
	lifecycle := domain.NewLifecycle(domain.LifecycleConfig{
		EditWindow:    cfg.Submission.EditWindow,
		ExpiryHorizon: cfg.Submission.ExpiryHorizon,
	})

	authService := domain.NewAuthService(userRepo, jwtManager)
	submissionService := domain.NewSubmissionService(submissionRepo, fileStorage, clock, lifecycle, logger)
	nearbyService := domain.NewNearbyService(submissionRepo, clock, lifecycle, cfg.Submission.DefaultRadiusKm)

	authHandler := api.NewAuthHandler(authService, logger)
	submissionHandler := api.NewSubmissionHandler(submissionService, nearbyService, logger)
	healthHandler := api.NewHealthHandler()

	router := api.NewRouter(authHandler, submissionHandler, healthHandler, jwtManager, logger)
	r := router.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolCfg.MaxConns = 25
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = 1 * time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, error) {
	if cfg.Storage.Type == "s3" {
		return storage.NewS3Storage(ctx, cfg.Storage)
	}
	return storage.NewLocalFileStorage(cfg.Storage.LocalPath, cfg.Storage.LocalBaseURL)
}
