package models

import (
	"encoding/json"
	"time"
)

// Campaign types
const (
	CampaignTypeBroadcast = "broadcast"
	CampaignTypeScheduled = "scheduled"
	CampaignTypeDrip      = "drip"
)

// Campaign statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusRunning   = "running"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// Message channels
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Campaign represents an outbound messaging campaign owned by a tenant
type Campaign struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`

	// broadcast, scheduled, drip
	Type    string `json:"type" gorm:"type:varchar(50);not null;default:'broadcast'"`
	Status  string `json:"status" gorm:"type:varchar(50);not null;index;default:'draft'"`
	Channel string `json:"channel" gorm:"type:varchar(20);not null;default:'email'"`

	// Audience and content references (shared entities, referenced by id)
	SegmentID  *string `json:"segment_id" gorm:"type:uuid;index"`
	TemplateID *string `json:"template_id" gorm:"type:uuid"`

	// Scheduling
	StartAt *time.Time `json:"start_at" gorm:"index"`
	EndAt   *time.Time `json:"end_at"`

	// Stop-rule configuration, see CampaignSettings
	Settings JSON `json:"settings" gorm:"type:jsonb"`

	// Set exactly once by the launch guard; a launched campaign is never
	// launched again
	LaunchedAt *time.Time `json:"launched_at"`

	// Soft retire: campaigns with messages are never hard-deleted
	ArchivedAt *time.Time `json:"archived_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Steps []CampaignStep `json:"steps,omitempty" gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Campaign model
func (Campaign) TableName() string {
	return "campaigns"
}

// IsTerminal reports whether the campaign may no longer produce new messages
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusPaused ||
		c.Status == CampaignStatusCompleted ||
		c.ArchivedAt != nil
}

// EffectiveStart resolves the generation start time relative to now:
// a future StartAt wins, anything else means "start immediately"
func (c *Campaign) EffectiveStart(now time.Time) time.Time {
	if c.StartAt != nil && c.StartAt.After(now) {
		return *c.StartAt
	}
	return now
}

// StopsSince returns the timestamp the replied/fatigue stop rules count from
func (c *Campaign) StopsSince() time.Time {
	if c.LaunchedAt != nil {
		return *c.LaunchedAt
	}
	return c.CreatedAt
}

// CampaignSettings is the stop-rule configuration carried in the settings
// blob. Absent flags mean the rule is skipped, never an implicit deny.
type CampaignSettings struct {
	StopOnUnsubscribe bool `json:"stop_on_unsubscribe"`
	StopOnWonLost     bool `json:"stop_on_won_lost"`
	StopOnReply       bool `json:"stop_on_reply"`

	FatigueEnabled   bool `json:"fatigue_enabled"`
	FatigueThreshold int  `json:"fatigue_threshold"`
	// Extra sends allowed past the threshold before the terminal sunset stop
	ReengagementAllowance int `json:"reengagement_allowance"`
}

// ParsedSettings decodes the settings blob. An empty or malformed blob
// yields zero-value settings, i.e. every stop rule disabled.
func (c *Campaign) ParsedSettings() CampaignSettings {
	var settings CampaignSettings
	if len(c.Settings) == 0 {
		return settings
	}
	raw, err := json.Marshal(c.Settings)
	if err != nil {
		return settings
	}
	_ = json.Unmarshal(raw, &settings)
	return settings
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name       string     `json:"name" binding:"required" example:"Spring reactivation"`
	Type       string     `json:"type" binding:"required" example:"drip"`
	Channel    string     `json:"channel" binding:"required" example:"email"`
	SegmentID  *string    `json:"segment_id"`
	TemplateID *string    `json:"template_id"`
	StartAt    *time.Time `json:"start_at"`
	EndAt      *time.Time `json:"end_at"`
	Settings   JSON       `json:"settings"`
}

// LaunchCampaignResponse reports how the launch fanned out
type LaunchCampaignResponse struct {
	CampaignID     string    `json:"campaign_id"`
	PassesEnqueued int       `json:"passes_enqueued"`
	EffectiveStart time.Time `json:"effective_start"`
}

// GenerateResponse reports the outcome of one generation pass
type GenerateResponse struct {
	CampaignID string  `json:"campaign_id"`
	StepID     *string `json:"step_id,omitempty"`
	Created    int     `json:"created"`
	Skipped    int     `json:"skipped"`
}

// CampaignStatsResponse is returned by the campaign detail endpoint
type CampaignStatsResponse struct {
	Campaign *Campaign        `json:"campaign"`
	Messages map[string]int64 `json:"messages"`
}
