package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsebridge/campaign-engine-backend/internal/config"
	"github.com/pulsebridge/campaign-engine-backend/internal/database"
	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"
	"github.com/pulsebridge/campaign-engine-backend/internal/services/providers"
	"github.com/pulsebridge/campaign-engine-backend/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// The worker drains both job queues: generation passes and message
// dispatches. It shares the database and queue topology with the API
// server and can run in as many replicas as needed.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configureLogging()
	utils.InitSentry()

	db, err := database.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	rabbitMQService, err := services.NewRabbitMQService()
	if err != nil {
		logrus.Fatalf("Failed to initialize RabbitMQ: %v", err)
	}
	defer rabbitMQService.Close()

	campaignRepo := repository.NewCampaignRepository(db)
	stepRepo := repository.NewCampaignStepRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	unsubscribeRepo := repository.NewUnsubscribeRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	engineConfig := config.GetEngineConfig()
	generator := services.NewMessageGenerator(
		campaignRepo, stepRepo, segmentRepo, templateRepo, leadRepo, messageRepo,
		unsubscribeRepo, services.NewPlaceholderRenderer(), rabbitMQService, auditRepo,
		engineConfig.SegmentBatchSize)

	dispatcher := providers.BuildRegistry(config.GetProviderConfig())
	reconciler := services.NewStatusReconciler(
		messageRepo, campaignRepo, dispatcher, rabbitMQService, auditRepo,
		engineConfig.MaxDispatchAttempts)

	stop := make(chan struct{})

	err = rabbitMQService.ConsumeGenerations(func(job models.GenerationJob) error {
		created, skipped, err := generator.Generate(context.Background(), job.TenantID, job.CampaignID, job.StepID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The campaign was deleted after the pass was enqueued,
			// requeueing would spin forever
			logrus.Warnf("Dropping generation job for missing campaign %s", job.CampaignID)
			return nil
		}
		if err != nil {
			return err
		}
		logrus.Infof("Generation pass for campaign %s: created=%d skipped=%d", job.CampaignID, created, skipped)
		return nil
	}, stop)
	if err != nil {
		logrus.Fatalf("Failed to start generation consumer: %v", err)
	}

	err = rabbitMQService.ConsumeDispatches(func(job models.DispatchJob) error {
		err := reconciler.DispatchMessage(context.Background(), job.TenantID, job.MessageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.Warnf("Dropping dispatch job for missing message %s", job.MessageID)
			return nil
		}
		return err
	}, stop)
	if err != nil {
		logrus.Fatalf("Failed to start dispatch consumer: %v", err)
	}

	logrus.Info("Worker started, consuming generation and dispatch queues")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down worker...")
	close(stop)
	logrus.Info("Worker exited properly")
}

func configureLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
