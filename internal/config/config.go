package config

import (
	"os"
	"strconv"
)

// EngineConfig holds campaign engine tuning parameters
type EngineConfig struct {
	SegmentBatchSize    int
	MaxDispatchAttempts int
	SweepInterval       string
	SweepLimit          int
}

// GetEngineConfig returns engine configuration from environment variables
func GetEngineConfig() *EngineConfig {
	batchSize, _ := strconv.Atoi(getEnv("SEGMENT_BATCH_SIZE", "200"))
	maxAttempts, _ := strconv.Atoi(getEnv("MAX_DISPATCH_ATTEMPTS", "3"))
	sweepLimit, _ := strconv.Atoi(getEnv("SWEEP_LIMIT", "100"))

	return &EngineConfig{
		SegmentBatchSize:    batchSize,
		MaxDispatchAttempts: maxAttempts,
		SweepInterval:       getEnv("SWEEP_INTERVAL", "* * * * *"),
		SweepLimit:          sweepLimit,
	}
}

// ProviderConfig holds outbound provider configuration
type ProviderConfig struct {
	SendGridAPIKey      string
	FromEmail           string
	FromName            string
	SmsSuccessRate      float64
	WhatsappSuccessRate float64
}

// GetProviderConfig returns provider configuration from environment variables
func GetProviderConfig() *ProviderConfig {
	smsRate, _ := strconv.ParseFloat(getEnv("SMS_SUCCESS_RATE", "0.95"), 64)
	waRate, _ := strconv.ParseFloat(getEnv("WHATSAPP_SUCCESS_RATE", "0.95"), 64)

	return &ProviderConfig{
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		FromEmail:           getEnv("FROM_EMAIL", "campaigns@pulsebridge.io"),
		FromName:            getEnv("FROM_NAME", "PulseBridge"),
		SmsSuccessRate:      smsRate,
		WhatsappSuccessRate: waRate,
	}
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
