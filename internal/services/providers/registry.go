package providers

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/config"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"
)

// BuildRegistry wires one dispatcher per supported channel
func BuildRegistry(cfg *config.ProviderConfig) *services.ProviderRegistry {
	registry := services.NewProviderRegistry()
	registry.Register(models.ChannelEmail, NewSendGridDispatcher(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName))
	registry.Register(models.ChannelSMS, NewSimulatedDispatcher("sms", cfg.SmsSuccessRate))
	registry.Register(models.ChannelWhatsApp, NewSimulatedDispatcher("whatsapp", cfg.WhatsappSuccessRate))
	return registry
}
