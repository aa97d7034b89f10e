package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epeers/corpactions/config"
	"github.com/epeers/corpactions/internal/handlers"
	"github.com/epeers/corpactions/internal/middleware"
	"github.com/epeers/corpactions/internal/runstore"
	"github.com/epeers/corpactions/internal/services"
	"github.com/epeers/corpactions/internal/yahoochart"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize chart client
	chartClient := yahoochart.NewClientWithBaseURL(cfg.ChartAPI.BaseURL)

	// Initialize services
	lookupSvc := services.NewLookupService(chartClient, cfg.Window.BeforeDays, cfg.Window.AfterDays)
	enrichSvc := services.NewEnrichmentService(lookupSvc, cfg.Batch.Size, time.Duration(cfg.Batch.DelayMS)*time.Millisecond)

	// Session state for the upload/enrich/export cycle
	store := runstore.New()

	// Initialize handlers
	enrichHandler := handlers.NewEnrichHandler(store, enrichSvc, cfg.ChartAPI.MarketSuffix)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Enrichment routes
	router.POST("/sheets", enrichHandler.UploadSheet)
	router.POST("/enrich", enrichHandler.Enrich)
	router.GET("/runs/latest", enrichHandler.LatestRun)
	router.GET("/export", enrichHandler.Export)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
