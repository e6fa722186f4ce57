package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/sirupsen/logrus"
)

// MessageGenerator runs one generation pass: it streams a campaign's
// segment in bounded batches, applies the stop rules, deduplicates against
// already-generated messages and materializes one queued message per
// admitted recipient. Safe to re-run: the dedup key makes a retried pass
// only create messages for recipients not yet materialized.
type MessageGenerator struct {
	campaigns CampaignStore
	steps     CampaignStepStore
	segments  SegmentStore
	templates TemplateStore
	leads     LeadStore
	messages  MessageStore
	resolver  *SegmentResolver
	evaluator *StopRuleEvaluator
	loader    *SuppressionLoader
	renderer  TemplateRenderer
	publisher JobPublisher
	audit     AuditStore
	batchSize int
}

func NewMessageGenerator(
	campaigns CampaignStore,
	steps CampaignStepStore,
	segments SegmentStore,
	templates TemplateStore,
	leads LeadStore,
	messages MessageStore,
	unsubscribes UnsubscribeStore,
	renderer TemplateRenderer,
	publisher JobPublisher,
	audit AuditStore,
	batchSize int,
) *MessageGenerator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MessageGenerator{
		campaigns: campaigns,
		steps:     steps,
		segments:  segments,
		templates: templates,
		leads:     leads,
		messages:  messages,
		resolver:  NewSegmentResolver(leads),
		evaluator: NewStopRuleEvaluator(),
		loader:    NewSuppressionLoader(messages, unsubscribes),
		renderer:  renderer,
		publisher: publisher,
		audit:     audit,
		batchSize: batchSize,
	}
}

// Generate runs one pass for (campaign, optional step). Configuration
// problems (terminal campaign, no template, no segment) make the pass a
// recorded no-op rather than an error, so the queue never retries them.
func (g *MessageGenerator) Generate(ctx context.Context, tenantID, campaignID string, stepID *string) (int, int, error) {
	campaign, err := g.campaigns.GetByID(tenantID, campaignID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.IsTerminal() {
		g.auditPass(tenantID, campaignID, stepID, 0, 0, "campaign is "+campaign.Status+", pass skipped")
		return 0, 0, nil
	}

	var step *models.CampaignStep
	if stepID != nil {
		step, err = g.steps.GetByID(tenantID, *stepID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load campaign step: %w", err)
		}
		if step.CampaignID != campaignID {
			g.auditPass(tenantID, campaignID, stepID, 0, 0, "step belongs to another campaign, pass skipped")
			return 0, 0, nil
		}
		if !step.IsActive {
			g.auditPass(tenantID, campaignID, stepID, 0, 0, "step is inactive, pass skipped")
			return 0, 0, nil
		}
	}

	template, err := g.resolveTemplate(tenantID, campaign, step)
	if err != nil {
		return 0, 0, err
	}
	if template == nil {
		g.auditPass(tenantID, campaignID, stepID, 0, 0, "no resolvable template, pass skipped")
		return 0, 0, nil
	}

	if campaign.SegmentID == nil {
		g.auditPass(tenantID, campaignID, stepID, 0, 0, "campaign has no segment, pass skipped")
		return 0, 0, nil
	}
	segment, err := g.segments.GetByID(tenantID, *campaign.SegmentID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load segment: %w", err)
	}

	channel := resolveChannel(campaign, step, template)
	settings := campaign.ParsedSettings()
	since := campaign.StopsSince()
	stepKey := models.StepKey(stepID)

	stream := g.resolver.Resolve(tenantID, segment, g.batchSize)

	created, skipped := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return created, skipped, err
		}

		batch, err := stream.Next()
		if err != nil {
			return created, skipped, err
		}
		if len(batch) == 0 {
			break
		}

		// Pause/complete is honored between batches; an in-flight batch is
		// never interrupted.
		fresh, err := g.campaigns.GetByID(tenantID, campaignID)
		if err != nil {
			return created, skipped, fmt.Errorf("failed to refresh campaign: %w", err)
		}
		if fresh.IsTerminal() {
			logrus.Infof("Campaign %s became %s mid-pass, stopping at batch boundary", campaignID, fresh.Status)
			break
		}

		batchCreated, batchSkipped, err := g.generateBatch(tenantID, campaign, stepKey, channel, settings, since, template, batch)
		if err != nil {
			return created, skipped, err
		}
		created += batchCreated
		skipped += batchSkipped
	}

	if _, err := g.campaigns.TransitionStatus(tenantID, campaignID,
		[]string{models.CampaignStatusDraft, models.CampaignStatusScheduled},
		models.CampaignStatusRunning); err != nil {
		logrus.Warnf("Failed to mark campaign %s running: %v", campaignID, err)
	}

	g.auditPass(tenantID, campaignID, stepID, created, skipped, "generation pass completed")
	logrus.Infof("Generation pass for campaign %s (step %s): created=%d skipped=%d",
		campaignID, stepKey, created, skipped)

	return created, skipped, nil
}

// generateBatch processes one batch of candidates. Per-recipient failures
// are counted as skipped and never abort the batch.
func (g *MessageGenerator) generateBatch(
	tenantID string,
	campaign *models.Campaign,
	stepKey, channel string,
	settings models.CampaignSettings,
	since time.Time,
	template *models.Template,
	batch []*models.Lead,
) (int, int, error) {
	leadIDs := make([]string, len(batch))
	for i, lead := range batch {
		leadIDs[i] = lead.ID
	}

	state, err := g.loader.Load(tenantID, settings, leadIDs, channel, since)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prefetch suppression state: %w", err)
	}

	existing, err := g.messages.ExistingLeadIDs(tenantID, campaign.ID, stepKey, channel, leadIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prefetch existing messages: %w", err)
	}

	created, skipped := 0, 0
	for _, lead := range batch {
		if stop, reason := g.evaluator.Evaluate(settings, lead, state); stop {
			logrus.Debugf("Lead %s suppressed on %s: %s", lead.ID, channel, reason)
			skipped++
			continue
		}

		destination := resolveDestination(lead, channel)
		if destination == "" {
			skipped++
			continue
		}

		if existing[lead.ID] {
			skipped++
			continue
		}

		rendered, err := g.renderer.Render(template, lead)
		if err != nil {
			logrus.Warnf("Failed to render template %s for lead %s: %v", template.ID, lead.ID, err)
			skipped++
			continue
		}

		message := &models.Message{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			CampaignID:  campaign.ID,
			StepID:      stepKey,
			LeadID:      lead.ID,
			Channel:     channel,
			Direction:   models.DirectionOutbound,
			Status:      models.MessageStatusQueued,
			Destination: destination,
			Subject:     rendered.Subject,
			Body:        rendered.Body,
		}

		if err := g.messages.Create(message); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				// Raced with a concurrent pass for the same key.
				skipped++
				continue
			}
			logrus.Warnf("Failed to persist message for lead %s: %v", lead.ID, err)
			skipped++
			continue
		}

		if err := g.leads.IncrementOutbound(tenantID, lead.ID, time.Now()); err != nil {
			logrus.Warnf("Failed to bump fatigue counter for lead %s: %v", lead.ID, err)
		}

		// Fire-and-forget handoff: an unpublished job leaves the message
		// queued, where a later sweep or manual dispatch can pick it up.
		if err := g.publisher.PublishDispatch(tenantID, message.ID); err != nil {
			logrus.Warnf("Failed to enqueue dispatch for message %s: %v", message.ID, err)
		}

		created++
	}

	return created, skipped, nil
}

func (g *MessageGenerator) resolveTemplate(tenantID string, campaign *models.Campaign, step *models.CampaignStep) (*models.Template, error) {
	templateID := campaign.TemplateID
	if step != nil && step.TemplateID != nil {
		templateID = step.TemplateID
	}
	if templateID == nil {
		return nil, nil
	}

	template, err := g.templates.GetByID(tenantID, *templateID)
	if err != nil {
		logrus.Warnf("Template %s not found for campaign %s", *templateID, campaign.ID)
		return nil, nil
	}
	return template, nil
}

func (g *MessageGenerator) auditPass(tenantID, campaignID string, stepID *string, created, skipped int, message string) {
	details := models.JSON{
		"created": created,
		"skipped": skipped,
	}
	if stepID != nil {
		details["step_id"] = *stepID
	}
	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectType: models.SubjectCampaign,
		SubjectID:   campaignID,
		Action:      "generation_pass",
		Message:     message,
		Details:     details,
	}
	if err := g.audit.Create(entry); err != nil {
		logrus.Warnf("Failed to record generation audit for campaign %s: %v", campaignID, err)
	}
}

// resolveChannel prefers the step channel, then the template channel, then
// the campaign default
func resolveChannel(campaign *models.Campaign, step *models.CampaignStep, template *models.Template) string {
	if step != nil && step.Channel != "" {
		return step.Channel
	}
	if template != nil && template.Channel != "" {
		return template.Channel
	}
	return campaign.Channel
}

// resolveDestination picks and validates the lead's address for a channel.
// Returns "" when the lead cannot be reached on that channel.
func resolveDestination(lead *models.Lead, channel string) string {
	switch channel {
	case models.ChannelEmail:
		email := strings.TrimSpace(lead.Email)
		if email == "" || !strings.Contains(email, "@") {
			return ""
		}
		return email
	case models.ChannelSMS, models.ChannelWhatsApp:
		phone := strings.TrimSpace(lead.Phone)
		if phone == "" {
			return ""
		}
		region := strings.ToUpper(lead.Country)
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			return ""
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	default:
		return ""
	}
}
