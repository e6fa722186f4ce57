package services

import (
	"context"
	"fmt"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
)

// ProviderRegistry maps channels to their provider dispatcher. The concrete
// integrations live in services/providers and are swappable behind
// MessageDispatcher.
type ProviderRegistry struct {
	dispatchers map[string]MessageDispatcher
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{dispatchers: make(map[string]MessageDispatcher)}
}

// Register binds a dispatcher to a channel
func (r *ProviderRegistry) Register(channel string, dispatcher MessageDispatcher) {
	r.dispatchers[channel] = dispatcher
}

// Dispatch routes the message to its channel's provider
func (r *ProviderRegistry) Dispatch(ctx context.Context, message *models.Message) (*DispatchResult, error) {
	dispatcher, ok := r.dispatchers[message.Channel]
	if !ok {
		return nil, fmt.Errorf("no provider registered for channel %q", message.Channel)
	}
	return dispatcher.Dispatch(ctx, message)
}
