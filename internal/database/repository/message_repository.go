package repository

import (
	"errors"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned by Create when the message dedup key already
// exists. Concurrent passes racing on the same recipient both resolve here.
var ErrDuplicateKey = errors.New("message already exists for dedup key")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message. The unique index over (tenant, campaign, step,
// lead, channel, direction) is the write-time dedup guard.
func (r *MessageRepository) Create(message *models.Message) error {
	err := r.db.Create(message).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// GetByID retrieves a message scoped to a tenant
func (r *MessageRepository) GetByID(tenantID, id string) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Update persists dispatch outcome fields
func (r *MessageRepository) Update(message *models.Message) error {
	return r.db.Save(message).Error
}

// ExistingLeadIDs returns the subset of leadIDs that already hold an
// outbound message for the dedup key, prefetched for a whole batch.
func (r *MessageRepository) ExistingLeadIDs(tenantID, campaignID, stepKey, channel string, leadIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return existing, nil
	}

	var ids []string
	err := r.db.Model(&models.Message{}).
		Where("tenant_id = ? AND campaign_id = ? AND step_id = ? AND channel = ? AND direction = ? AND lead_id IN ?",
			tenantID, campaignID, stepKey, channel, models.DirectionOutbound, leadIDs).
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}

// CountByCampaignAndStatus counts a campaign's messages in one status
func (r *MessageRepository) CountByCampaignAndStatus(tenantID, campaignID, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("tenant_id = ? AND campaign_id = ? AND status = ?", tenantID, campaignID, status).
		Count(&count).Error
	return count, err
}

// StatusCounts groups a campaign's messages by status
func (r *MessageRepository) StatusCounts(tenantID, campaignID string) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.Message{}).
		Select("status, count(*) as total").
		Where("tenant_id = ? AND campaign_id = ?", tenantID, campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// CountOutboundSince counts sent outbound messages per lead on a channel
// since a timestamp, batched for a whole generation batch (fatigue rule).
func (r *MessageRepository) CountOutboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]int, error) {
	counts := make(map[string]int, len(leadIDs))
	if len(leadIDs) == 0 {
		return counts, nil
	}

	type row struct {
		LeadID string
		Total  int
	}
	var rows []row
	err := r.db.Model(&models.Message{}).
		Select("lead_id, count(*) as total").
		Where("tenant_id = ? AND channel = ? AND direction = ? AND lead_id IN ? AND created_at >= ? AND status <> ?",
			tenantID, channel, models.DirectionOutbound, leadIDs, since, models.MessageStatusFailed).
		Group("lead_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.LeadID] = r.Total
	}
	return counts, nil
}

// LeadIDsWithInboundSince returns leads with an inbound message on a channel
// since a timestamp (replied rule), batched per generation batch.
func (r *MessageRepository) LeadIDsWithInboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]bool, error) {
	replied := make(map[string]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return replied, nil
	}

	var ids []string
	err := r.db.Model(&models.Message{}).
		Where("tenant_id = ? AND channel = ? AND direction = ? AND lead_id IN ? AND created_at >= ?",
			tenantID, channel, models.DirectionInbound, leadIDs, since).
		Distinct().
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		replied[id] = true
	}
	return replied, nil
}
