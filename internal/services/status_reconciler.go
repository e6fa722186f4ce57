package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotRetryable means the message is not in a retryable state
	ErrNotRetryable = errors.New("message is not in a retryable state")

	// ErrMaxAttempts means the message exhausted its dispatch attempts
	ErrMaxAttempts = errors.New("message exhausted its dispatch attempts")
)

// DefaultMaxDispatchAttempts bounds explicit re-dispatches of a failed message
const DefaultMaxDispatchAttempts = 3

// StatusReconciler applies dispatch outcomes to the message lifecycle and
// runs campaign completion detection after every attempt. Failed dispatches
// are terminal: the queue's own job retries hit the queued-only status
// guard and no-op, and a fresh attempt requires an explicit Retry.
type StatusReconciler struct {
	messages    MessageStore
	campaigns   CampaignStore
	dispatcher  MessageDispatcher
	publisher   JobPublisher
	audit       AuditStore
	maxAttempts int
}

func NewStatusReconciler(messages MessageStore, campaigns CampaignStore, dispatcher MessageDispatcher, publisher JobPublisher, audit AuditStore, maxAttempts int) *StatusReconciler {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxDispatchAttempts
	}
	return &StatusReconciler{
		messages:    messages,
		campaigns:   campaigns,
		dispatcher:  dispatcher,
		publisher:   publisher,
		audit:       audit,
		maxAttempts: maxAttempts,
	}
}

// DispatchMessage attempts delivery of one queued message and reconciles
// the outcome. Idempotent under job retries: a non-queued message is never
// re-dispatched.
func (r *StatusReconciler) DispatchMessage(ctx context.Context, tenantID, messageID string) error {
	message, err := r.messages.GetByID(tenantID, messageID)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}

	if message.Status != models.MessageStatusQueued {
		logrus.Debugf("Message %s is %s, skipping dispatch", messageID, message.Status)
		return nil
	}

	if message.Destination == "" {
		r.markFailed(message, "No destination")
		return r.persistAndConverge(tenantID, message)
	}

	message.Attempts++

	result, err := r.safeDispatch(ctx, message)
	switch {
	case err != nil:
		// Provider exceptions mark the message failed and are reported,
		// never re-thrown: completion checking must still run.
		sentry.CaptureException(err)
		logrus.Errorf("Dispatch of message %s failed: %v", messageID, err)
		r.markFailed(message, err.Error())
	case result.Accepted:
		status := result.Status
		if status == "" {
			status = models.MessageStatusSent
		}
		now := time.Now()
		message.Status = status
		message.Provider = result.Provider
		message.ProviderMessageID = result.ProviderMessageID
		message.ErrorMessage = ""
		message.SentAt = &now
	default:
		message.Provider = result.Provider
		r.markFailed(message, result.ErrorMessage)
	}

	return r.persistAndConverge(tenantID, message)
}

// RetryMessage resets a failed message back to queued and re-enqueues its
// dispatch, bounded by the max-attempts policy.
func (r *StatusReconciler) RetryMessage(ctx context.Context, tenantID, messageID string) error {
	message, err := r.messages.GetByID(tenantID, messageID)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}

	if message.Status != models.MessageStatusFailed {
		return ErrNotRetryable
	}
	if message.Attempts >= r.maxAttempts {
		return ErrMaxAttempts
	}

	message.Status = models.MessageStatusQueued
	message.ErrorMessage = ""
	message.FailedAt = nil
	if err := r.messages.Update(message); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}

	if err := r.publisher.PublishDispatch(tenantID, messageID); err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	r.auditMessage(tenantID, messageID, "retry",
		fmt.Sprintf("Dispatch re-enqueued, attempt %d of %d", message.Attempts+1, r.maxAttempts))
	return nil
}

// safeDispatch invokes the provider behind a panic boundary
func (r *StatusReconciler) safeDispatch(ctx context.Context, message *models.Message) (result *DispatchResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("dispatcher panic: %v", rec)
		}
	}()
	return r.dispatcher.Dispatch(ctx, message)
}

func (r *StatusReconciler) markFailed(message *models.Message, reason string) {
	now := time.Now()
	message.Status = models.MessageStatusFailed
	message.ErrorMessage = reason
	message.FailedAt = &now
}

// persistAndConverge saves the outcome and runs completion detection.
// Completion is checked after every single attempt rather than by a
// separate sweep. Failed outcomes leave a message-scoped audit entry.
func (r *StatusReconciler) persistAndConverge(tenantID string, message *models.Message) error {
	if err := r.messages.Update(message); err != nil {
		return fmt.Errorf("failed to persist dispatch outcome: %w", err)
	}

	if message.Status == models.MessageStatusFailed {
		r.auditMessage(tenantID, message.ID, "dispatch_failed", message.ErrorMessage)
	}

	r.checkCompletion(tenantID, message.CampaignID)
	return nil
}

func (r *StatusReconciler) auditMessage(tenantID, messageID, action, detail string) {
	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectType: models.SubjectMessage,
		SubjectID:   messageID,
		Action:      action,
		Message:     detail,
	}
	if err := r.audit.Create(entry); err != nil {
		logrus.Warnf("Failed to record %s audit for message %s: %v", action, messageID, err)
	}
}

// checkCompletion transitions a campaign to completed once no queued
// messages remain. The guarded transition fires at most once.
func (r *StatusReconciler) checkCompletion(tenantID, campaignID string) {
	campaign, err := r.campaigns.GetByID(tenantID, campaignID)
	if err != nil {
		logrus.Warnf("Completion check failed to load campaign %s: %v", campaignID, err)
		return
	}
	if campaign.Status != models.CampaignStatusRunning && campaign.Status != models.CampaignStatusScheduled {
		return
	}

	queued, err := r.messages.CountByCampaignAndStatus(tenantID, campaignID, models.MessageStatusQueued)
	if err != nil {
		logrus.Warnf("Completion check failed to count queued messages for campaign %s: %v", campaignID, err)
		return
	}
	if queued > 0 {
		return
	}

	changed, err := r.campaigns.TransitionStatus(tenantID, campaignID,
		[]string{models.CampaignStatusRunning, models.CampaignStatusScheduled},
		models.CampaignStatusCompleted)
	if err != nil {
		logrus.Warnf("Failed to complete campaign %s: %v", campaignID, err)
		return
	}
	if !changed {
		return
	}

	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectType: models.SubjectCampaign,
		SubjectID:   campaignID,
		Action:      "completed",
		Message:     "All messages reached a terminal status",
	}
	if err := r.audit.Create(entry); err != nil {
		logrus.Warnf("Failed to record completion audit for campaign %s: %v", campaignID, err)
	}
	logrus.Infof("Campaign %s completed", campaignID)
}
