package models

import (
	"time"
)

// Template is the rendering source for one channel. Placeholders use the
// {field_name} syntax resolved against lead attributes.
type Template struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	Channel  string `json:"channel" gorm:"type:varchar(20);not null"`

	// Subject is only meaningful for email
	Subject string `json:"subject" gorm:"type:varchar(500)"`
	Body    string `json:"body" gorm:"type:text;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Template model
func (Template) TableName() string {
	return "templates"
}

// RenderedMessage is the renderer output for one lead
type RenderedMessage struct {
	Subject string
	Body    string
	Meta    map[string]interface{}
}
