package models

import (
	"time"
)

// CampaignStep is one wave of a drip campaign. Each active step fires its
// own generation pass at DelayMinutes from the campaign's effective start.
type CampaignStep struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID   string `json:"tenant_id" gorm:"not null;index;type:uuid"`
	CampaignID string `json:"campaign_id" gorm:"not null;index;type:uuid"`

	Position     int    `json:"position" gorm:"not null;default:1"`
	Channel      string `json:"channel" gorm:"type:varchar(20);not null;default:'email'"`
	DelayMinutes int    `json:"delay_minutes" gorm:"not null;default:0"`
	IsActive     bool   `json:"is_active" gorm:"not null;default:true;index"`

	// Optional step-specific template; falls back to the campaign default
	TemplateID *string `json:"template_id" gorm:"type:uuid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CampaignStep model
func (CampaignStep) TableName() string {
	return "campaign_steps"
}

// Delay returns the step offset as a duration, clamping negative values
func (s *CampaignStep) Delay() time.Duration {
	if s.DelayMinutes < 0 {
		return 0
	}
	return time.Duration(s.DelayMinutes) * time.Minute
}
