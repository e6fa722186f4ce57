package models

import (
	"time"
)

// Unsubscribe is a channel-scoped suppression record for a lead. A record
// is active while RevokedAt is null.
type Unsubscribe struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`
	LeadID   string `json:"lead_id" gorm:"not null;index;type:uuid"`
	Channel  string `json:"channel" gorm:"type:varchar(20);not null;index"`
	Reason   string `json:"reason" gorm:"type:varchar(100)"`

	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for the Unsubscribe model
func (Unsubscribe) TableName() string {
	return "unsubscribes"
}
