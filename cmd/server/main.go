// Package main is the entry point for the report engine API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reportengine/internal/domain/records"
	"reportengine/internal/domain/reports"
	v1 "reportengine/internal/infrastructure/http/v1"
	"reportengine/internal/infrastructure/http/v1/handlers"
	"reportengine/internal/infrastructure/storage/memory"
	"reportengine/internal/infrastructure/storage/postgres"
	"reportengine/internal/infrastructure/storage/postgres/report_repo"
	"reportengine/pkg/logger"
)

var version = "dev"

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting report engine", "version", version)

	loc, err := time.LoadLocation(getEnv("REPORT_TIMEZONE", "UTC"))
	if err != nil {
		log.Fatalw("invalid REPORT_TIMEZONE", "error", err)
	}

	// --- Record store ---
	var (
		repo reports.Repository
		db   handlers.Pinger
	)
	if fixtures := getEnv("REPORT_FIXTURES", ""); fixtures != "" {
		store, err := memory.LoadFixturesFile(fixtures)
		if err != nil {
			log.Fatalw("failed to load fixtures", "path", fixtures, "error", err)
		}
		repo = store
		log.Infow("serving reports from fixtures", "path", fixtures)
	} else {
		poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
		if maxConns := getEnvInt("DB_MAX_CONNS", 25); maxConns > 0 {
			poolCfg.MaxConns = int32(maxConns)
			poolCfg.MinConns = min(poolCfg.MinConns, poolCfg.MaxConns)
		}

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = getEnvDuration("REPORT_STATEMENT_TIMEOUT", txOpts.StatementTimeout)

		repo = report_repo.NewReportRepo(postgres.NewTxManager(pool, txOpts))
		db = pool
	}

	// --- Report service ---
	service := reports.NewService(repo, records.MustRegistry(), reports.Options{
		MaxRows:  getEnvInt("REPORT_MAX_ROWS", reports.DefaultMaxRows),
		Location: loc,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:  log,
		Service: service,
		DB:      db,
		Version: version,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding reports 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
