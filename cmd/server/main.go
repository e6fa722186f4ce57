package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/config"
	"github.com/pulsebridge/campaign-engine-backend/internal/database"
	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/router"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"
	"github.com/pulsebridge/campaign-engine-backend/internal/services/providers"
	"github.com/pulsebridge/campaign-engine-backend/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// @title Campaign Engine API
// @version 1.0
// @description Campaign messaging engine: segments, stop rules, launch scheduling, message generation and dispatch

// @BasePath /

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Configure logging
	configureLogging()

	// Initialize Sentry
	utils.InitSentry()

	// Initialize database connection
	db, err := database.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize RabbitMQ service
	rabbitMQService, err := services.NewRabbitMQService()
	if err != nil {
		logrus.Fatalf("Failed to initialize RabbitMQ: %v", err)
	}
	defer rabbitMQService.Close()
	logrus.Info("RabbitMQ service initialized")

	// Build the per-channel provider registry
	dispatcher := providers.BuildRegistry(config.GetProviderConfig())

	// Start the sweeper that launches scheduled campaigns when they come due
	engineConfig := config.GetEngineConfig()
	campaignRepo := repository.NewCampaignRepository(db)
	stepRepo := repository.NewCampaignStepRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	scheduler := services.NewCampaignScheduler(campaignRepo, stepRepo, rabbitMQService, auditRepo)
	sweeper := services.NewCampaignSweeper(campaignRepo, scheduler, engineConfig.SweepInterval, engineConfig.SweepLimit)
	if err := sweeper.Start(); err != nil {
		logrus.Fatalf("Failed to start campaign sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Initialize router
	r := router.SetupRouter(db, rabbitMQService, dispatcher)

	// Configure HTTP server
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging() {
	logLevel := getEnv("LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
