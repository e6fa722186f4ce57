package providers

import (
	"context"
	"fmt"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// SendGridDispatcher delivers email messages through SendGrid. Without an
// API key it runs in console mode and logs instead of sending, which keeps
// development environments working.
type SendGridDispatcher struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridDispatcher(apiKey, fromEmail, fromName string) *SendGridDispatcher {
	if apiKey == "" {
		logrus.Warn("SendGrid dispatcher in console-only mode (set SENDGRID_API_KEY for production)")
	}
	return &SendGridDispatcher{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Dispatch sends one email message
func (d *SendGridDispatcher) Dispatch(ctx context.Context, message *models.Message) (*services.DispatchResult, error) {
	if d.apiKey == "" {
		logrus.Infof("[console email] to=%s subject=%q", message.Destination, message.Subject)
		return &services.DispatchResult{
			Accepted: true,
			Provider: "console",
			Status:   models.MessageStatusSent,
		}, nil
	}

	from := mail.NewEmail(d.fromName, d.fromEmail)
	to := mail.NewEmail("", message.Destination)
	email := mail.NewSingleEmail(from, message.Subject, to, message.Body, message.Body)

	client := sendgrid.NewSendClient(d.apiKey)
	response, err := client.SendWithContext(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		return &services.DispatchResult{
			Accepted:     false,
			Provider:     "sendgrid",
			ErrorMessage: fmt.Sprintf("sendgrid returned status %d: %s", response.StatusCode, response.Body),
		}, nil
	}

	var providerID string
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		providerID = ids[0]
	}

	return &services.DispatchResult{
		Accepted:          true,
		Provider:          "sendgrid",
		ProviderMessageID: providerID,
		Status:            models.MessageStatusSent,
		Meta: map[string]interface{}{
			"status_code": response.StatusCode,
		},
	}, nil
}
