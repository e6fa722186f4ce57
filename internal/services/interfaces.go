package services

import (
	"context"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
)

// The engine depends on these narrow store interfaces rather than concrete
// repositories, so the generation/dispatch control flow is testable without
// a database. The gorm repositories in internal/database/repository satisfy
// them.

type CampaignStore interface {
	GetByID(tenantID, id string) (*models.Campaign, error)
	MarkLaunched(tenantID, id string) (bool, error)
	TransitionStatus(tenantID, id string, from []string, to string) (bool, error)
}

type CampaignStepStore interface {
	Create(step *models.CampaignStep) error
	GetByID(tenantID, id string) (*models.CampaignStep, error)
	ListActiveByCampaign(tenantID, campaignID string) ([]*models.CampaignStep, error)
}

type SegmentStore interface {
	GetByID(tenantID, id string) (*models.Segment, error)
}

type LeadStore interface {
	FindBySegment(tenantID string, rules *models.SegmentRuleGroup, afterID string, limit int) ([]*models.Lead, error)
	IncrementOutbound(tenantID, id string, at time.Time) error
}

type TemplateStore interface {
	GetByID(tenantID, id string) (*models.Template, error)
}

// MessageStore's Create must return repository.ErrDuplicateKey when the
// dedup key already exists.
type MessageStore interface {
	Create(message *models.Message) error
	GetByID(tenantID, id string) (*models.Message, error)
	Update(message *models.Message) error
	ExistingLeadIDs(tenantID, campaignID, stepKey, channel string, leadIDs []string) (map[string]bool, error)
	CountByCampaignAndStatus(tenantID, campaignID, status string) (int64, error)
	CountOutboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]int, error)
	LeadIDsWithInboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]bool, error)
}

type UnsubscribeStore interface {
	ActiveLeadIDs(tenantID string, leadIDs []string, channel string) (map[string]bool, error)
}

type AuditStore interface {
	Create(entry *models.AuditLog) error
}

// JobPublisher hands work to the queue. Delays are relative; the queue
// layer turns them into delayed delivery.
type JobPublisher interface {
	PublishGeneration(tenantID, campaignID string, stepID *string, delay time.Duration) error
	PublishDispatch(tenantID, messageID string) error
}

// TemplateRenderer resolves a template against one lead. External
// collaborators may replace the default placeholder renderer.
type TemplateRenderer interface {
	Render(template *models.Template, lead *models.Lead) (*models.RenderedMessage, error)
}

// MessageDispatcher attempts delivery of one message through a channel
// provider.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, message *models.Message) (*DispatchResult, error)
}

// DispatchResult is the provider's verdict on one delivery attempt
type DispatchResult struct {
	Accepted          bool
	Provider          string
	ProviderMessageID string
	Status            string
	ErrorMessage      string
	Meta              map[string]interface{}
}
