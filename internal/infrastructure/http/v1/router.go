// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"

	"reportengine/internal/domain/reports"
	"reportengine/internal/infrastructure/http/v1/handlers"
	"reportengine/internal/infrastructure/http/v1/middleware"
	"reportengine/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Service executes report configurations
	Service *reports.Service

	// DB is used by the readiness probe; nil disables the check
	DB handlers.Pinger

	// Version is reported by /health/info
	Version string

	// GzipLevel compresses responses; 0 uses gzip.DefaultCompression,
	// a negative value disables compression
	GzipLevel int

	// Mode is the gin mode (release, debug, test)
	Mode string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	gin.SetMode(cfg.Mode)
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.GzipLevel >= 0 {
		level := cfg.GzipLevel
		if level == 0 {
			level = gzip.DefaultCompression
		}
		router.Use(middleware.Gzip(level))
	}
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no scope required)
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Scope())
	{
		registerReportRoutes(v1, cfg)
	}

	return router
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	reportsGroup := rg.Group("/reports")
	baseHandler := handlers.NewBaseHandler()

	metaHandler := handlers.NewMetadataHandler(baseHandler, cfg.Service.Registry())
	reportsGroup.GET("/entities", metaHandler.ListEntities)
	reportsGroup.GET("/entities/:name", metaHandler.GetEntity)

	reportHandler := handlers.NewReportsHandler(baseHandler, cfg.Service)
	reportsGroup.POST("/execute", reportHandler.Execute)
	reportsGroup.POST("/export", reportHandler.Export)
}
