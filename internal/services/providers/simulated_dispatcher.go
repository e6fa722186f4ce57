package providers

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// SimulatedDispatcher stands in for SMS and WhatsApp gateways that are not
// connected yet. It accepts a configurable share of messages and rejects the
// rest, so reconciliation paths stay exercised end to end.
type SimulatedDispatcher struct {
	provider    string
	successRate float64
}

// NewSimulatedDispatcher builds a dispatcher that accepts successRate of
// messages (0.0 to 1.0). Values outside the range are clamped.
func NewSimulatedDispatcher(provider string, successRate float64) *SimulatedDispatcher {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedDispatcher{provider: provider, successRate: successRate}
}

func (d *SimulatedDispatcher) Dispatch(ctx context.Context, message *models.Message) (*services.DispatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rand.Float64() >= d.successRate {
		return &services.DispatchResult{
			Accepted:     false,
			Provider:     d.provider,
			ErrorMessage: fmt.Sprintf("%s gateway rejected message", d.provider),
		}, nil
	}

	logrus.Debugf("[%s] delivered to %s", d.provider, message.Destination)
	return &services.DispatchResult{
		Accepted:          true,
		Provider:          d.provider,
		ProviderMessageID: uuid.New().String(),
		Status:            models.MessageStatusSent,
	}, nil
}
