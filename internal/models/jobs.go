package models

// GenerationJob is the payload of one queued generation pass
type GenerationJob struct {
	TenantID   string  `json:"tenant_id"`
	CampaignID string  `json:"campaign_id"`
	StepID     *string `json:"step_id,omitempty"`
}

// DispatchJob is the payload of one queued dispatch attempt
type DispatchJob struct {
	TenantID  string `json:"tenant_id"`
	MessageID string `json:"message_id"`
}
