package models

import (
	"time"
)

// Audit subject types
const (
	SubjectCampaign = "campaign"
	SubjectMessage  = "message"
)

// AuditSubject is the typed entity reference an audit entry points at
type AuditSubject struct {
	Type string
	ID   string
}

// CampaignSubject builds an audit subject for a campaign
func CampaignSubject(id string) AuditSubject {
	return AuditSubject{Type: SubjectCampaign, ID: id}
}

// MessageSubject builds an audit subject for a message
func MessageSubject(id string) AuditSubject {
	return AuditSubject{Type: SubjectMessage, ID: id}
}

// AuditLog records one pipeline event (launch, generation pass, completion)
type AuditLog struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`

	SubjectType string `json:"subject_type" gorm:"type:varchar(50);not null;index:idx_audit_subject"`
	SubjectID   string `json:"subject_id" gorm:"not null;index:idx_audit_subject;type:uuid"`

	Action  string `json:"action" gorm:"type:varchar(100);not null"`
	Message string `json:"message" gorm:"type:text"`
	Details JSON   `json:"details" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
