package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCampaignNotActive means the campaign is paused, completed or
	// archived and may not be launched.
	ErrCampaignNotActive = errors.New("campaign is not in a launchable state")

	// ErrAlreadyLaunched means the launch guard fired: a second launch of
	// the same campaign would double-schedule every pass.
	ErrAlreadyLaunched = errors.New("campaign was already launched")
)

// CampaignScheduler fans a campaign launch out into generation passes:
// one immediate pass for broadcast/scheduled campaigns, one delayed pass
// per active step for drip campaigns.
type CampaignScheduler struct {
	campaigns CampaignStore
	steps     CampaignStepStore
	publisher JobPublisher
	audit     AuditStore
}

func NewCampaignScheduler(campaigns CampaignStore, steps CampaignStepStore, publisher JobPublisher, audit AuditStore) *CampaignScheduler {
	return &CampaignScheduler{
		campaigns: campaigns,
		steps:     steps,
		publisher: publisher,
		audit:     audit,
	}
}

// Launch schedules a campaign's generation passes and returns how many were
// enqueued. Launching twice returns ErrAlreadyLaunched.
func (s *CampaignScheduler) Launch(ctx context.Context, tenantID, campaignID string) (int, time.Time, error) {
	campaign, err := s.campaigns.GetByID(tenantID, campaignID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.IsTerminal() {
		return 0, time.Time{}, ErrCampaignNotActive
	}

	launched, err := s.campaigns.MarkLaunched(tenantID, campaignID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to mark campaign launched: %w", err)
	}
	if !launched {
		return 0, time.Time{}, ErrAlreadyLaunched
	}

	now := time.Now()
	effectiveStart := campaign.EffectiveStart(now)

	passes := 0
	if campaign.Type == models.CampaignTypeDrip {
		steps, err := s.resolveSteps(tenantID, campaign)
		if err != nil {
			return 0, time.Time{}, err
		}
		for _, step := range steps {
			stepID := step.ID
			runAt := effectiveStart.Add(step.Delay())
			if err := s.publisher.PublishGeneration(tenantID, campaignID, &stepID, runAt.Sub(now)); err != nil {
				return passes, effectiveStart, fmt.Errorf("failed to enqueue step %s: %w", step.ID, err)
			}
			passes++
		}
	} else {
		if err := s.publisher.PublishGeneration(tenantID, campaignID, nil, effectiveStart.Sub(now)); err != nil {
			return 0, effectiveStart, fmt.Errorf("failed to enqueue generation pass: %w", err)
		}
		passes = 1
	}

	if effectiveStart.After(now) {
		if _, err := s.campaigns.TransitionStatus(tenantID, campaignID,
			[]string{models.CampaignStatusDraft}, models.CampaignStatusScheduled); err != nil {
			logrus.Warnf("Failed to mark campaign %s scheduled: %v", campaignID, err)
		}
	}

	s.auditLaunch(tenantID, campaignID, passes, effectiveStart)
	logrus.Infof("Campaign %s launched: %d generation pass(es), effective start %s",
		campaignID, passes, effectiveStart.Format(time.RFC3339))

	return passes, effectiveStart, nil
}

// resolveSteps loads the drip steps, materializing a single default step
// when the campaign has none yet
func (s *CampaignScheduler) resolveSteps(tenantID string, campaign *models.Campaign) ([]*models.CampaignStep, error) {
	steps, err := s.steps.ListActiveByCampaign(tenantID, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign steps: %w", err)
	}
	if len(steps) > 0 {
		return steps, nil
	}

	step := &models.CampaignStep{
		TenantID:     tenantID,
		CampaignID:   campaign.ID,
		Position:     1,
		Channel:      campaign.Channel,
		DelayMinutes: 0,
		IsActive:     true,
		TemplateID:   campaign.TemplateID,
	}
	if err := s.steps.Create(step); err != nil {
		return nil, fmt.Errorf("failed to materialize default step: %w", err)
	}
	return []*models.CampaignStep{step}, nil
}

func (s *CampaignScheduler) auditLaunch(tenantID, campaignID string, passes int, effectiveStart time.Time) {
	entry := &models.AuditLog{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		SubjectType: models.SubjectCampaign,
		SubjectID:   campaignID,
		Action:      "launched",
		Message:     fmt.Sprintf("Scheduled %d generation pass(es)", passes),
		Details: models.JSON{
			"passes":          passes,
			"effective_start": effectiveStart.Format(time.RFC3339),
		},
	}
	if err := s.audit.Create(entry); err != nil {
		logrus.Warnf("Failed to record launch audit for campaign %s: %v", campaignID, err)
	}
}
