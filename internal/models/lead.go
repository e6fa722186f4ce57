package models

import (
	"time"
)

// Lead statuses
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusWon       = "won"
	LeadStatusLost      = "lost"
)

// Lead is a recipient. The engine reads leads and only writes back the
// fatigue counters as a side effect of message creation.
type Lead struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`

	Email     string `json:"email" gorm:"type:varchar(255);index"`
	Phone     string `json:"phone" gorm:"type:varchar(50);index"`
	FirstName string `json:"first_name" gorm:"type:varchar(255)"`
	LastName  string `json:"last_name" gorm:"type:varchar(255)"`
	Company   string `json:"company" gorm:"type:varchar(255)"`
	Country   string `json:"country" gorm:"type:varchar(10)"`

	Status string `json:"status" gorm:"type:varchar(50);index;default:'new'"`
	Source string `json:"source" gorm:"type:varchar(100)"`

	// Fatigue counters
	OutboundCount   int        `json:"outbound_count" gorm:"not null;default:0"`
	LastContactedAt *time.Time `json:"last_contacted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Lead model
func (Lead) TableName() string {
	return "leads"
}

// DealClosed reports whether the lead reached a terminal deal status
func (l *Lead) DealClosed() bool {
	return l.Status == LeadStatusWon || l.Status == LeadStatusLost
}
