package services

import (
	"context"
	"errors"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DueCampaignStore lists scheduled campaigns whose start time has passed
type DueCampaignStore interface {
	ListDueScheduled(now time.Time, limit int) ([]*models.Campaign, error)
}

// Sweeper defaults, used when the configured values are absent
const (
	DefaultSweepInterval = "* * * * *"
	DefaultSweepLimit    = 100
)

// CampaignSweeper launches scheduled campaigns when their start time
// arrives. The scheduler's launch-once guard makes the sweep safe to
// overlap with manual launches and with itself.
type CampaignSweeper struct {
	campaigns DueCampaignStore
	scheduler *CampaignScheduler
	cron      *cron.Cron
	interval  string
	limit     int
}

func NewCampaignSweeper(campaigns DueCampaignStore, scheduler *CampaignScheduler, interval string, limit int) *CampaignSweeper {
	if interval == "" {
		interval = DefaultSweepInterval
	}
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	return &CampaignSweeper{
		campaigns: campaigns,
		scheduler: scheduler,
		cron:      cron.New(),
		interval:  interval,
		limit:     limit,
	}
}

// Start schedules the sweep on the configured cron interval
func (s *CampaignSweeper) Start() error {
	_, err := s.cron.AddFunc(s.interval, s.Sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	logrus.Info("Scheduled-campaign sweeper started")
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish
func (s *CampaignSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep launches every due campaign once
func (s *CampaignSweeper) Sweep() {
	due, err := s.campaigns.ListDueScheduled(time.Now(), s.limit)
	if err != nil {
		logrus.Errorf("Sweep failed to list due campaigns: %v", err)
		return
	}

	for _, campaign := range due {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, _, err := s.scheduler.Launch(ctx, campaign.TenantID, campaign.ID)
		cancel()

		if errors.Is(err, ErrAlreadyLaunched) {
			continue
		}
		if err != nil {
			logrus.Errorf("Sweep failed to launch campaign %s: %v", campaign.ID, err)
			continue
		}
		logrus.Infof("Sweep launched scheduled campaign %s", campaign.ID)
	}
}
