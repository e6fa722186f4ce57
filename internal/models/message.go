package models

import (
	"time"
)

// Message directions
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Message statuses
const (
	MessageStatusQueued    = "queued"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusOpened    = "opened"
	MessageStatusClicked   = "clicked"
	MessageStatusFailed    = "failed"
)

// Message is one generation attempt for a (campaign, step, lead, channel)
// tuple. The partial unique index is the dedup invariant: at most one
// outbound row may exist per key. Inbound rows are exempt, a lead may
// reply any number of times on the same campaign and channel. StepID is
// stored as '' for step-less passes so the index also covers the null case.
type Message struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenant_id" gorm:"not null;uniqueIndex:idx_messages_dedup,where:direction = 'outbound';type:uuid"`

	CampaignID string `json:"campaign_id" gorm:"not null;uniqueIndex:idx_messages_dedup;index;type:uuid"`
	StepID     string `json:"step_id,omitempty" gorm:"uniqueIndex:idx_messages_dedup;type:varchar(36);default:''"`
	LeadID     string `json:"lead_id" gorm:"not null;uniqueIndex:idx_messages_dedup;index;type:uuid"`
	Channel    string `json:"channel" gorm:"type:varchar(20);not null;uniqueIndex:idx_messages_dedup"`
	Direction  string `json:"direction" gorm:"type:varchar(10);not null;default:'outbound'"`

	Status      string `json:"status" gorm:"type:varchar(20);not null;index;default:'queued'"`
	Destination string `json:"destination" gorm:"type:varchar(255)"`

	Subject string `json:"subject" gorm:"type:text"`
	Body    string `json:"body" gorm:"type:text"`

	Provider          string `json:"provider" gorm:"type:varchar(50)"`
	ProviderMessageID string `json:"provider_message_id" gorm:"type:varchar(255)"`
	ErrorMessage      string `json:"error_message" gorm:"type:text"`
	Attempts          int    `json:"attempts" gorm:"not null;default:0"`

	SentAt      *time.Time `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	OpenedAt    *time.Time `json:"opened_at"`
	ClickedAt   *time.Time `json:"clicked_at"`
	FailedAt    *time.Time `json:"failed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}

// StepIDOrNil maps the stored step key back to an optional id
func (m *Message) StepIDOrNil() *string {
	if m.StepID == "" {
		return nil
	}
	step := m.StepID
	return &step
}

// StepKey normalizes an optional step id to its stored form
func StepKey(stepID *string) string {
	if stepID == nil {
		return ""
	}
	return *stepID
}
