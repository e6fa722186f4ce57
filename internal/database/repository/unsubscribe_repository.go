package repository

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type UnsubscribeRepository struct {
	db *gorm.DB
}

func NewUnsubscribeRepository(db *gorm.DB) *UnsubscribeRepository {
	return &UnsubscribeRepository{db: db}
}

// Create creates a new unsubscribe record
func (r *UnsubscribeRepository) Create(unsubscribe *models.Unsubscribe) error {
	return r.db.Create(unsubscribe).Error
}

// ActiveLeadIDs returns the subset of leadIDs with an active unsubscribe
// on a channel, prefetched for a whole generation batch.
func (r *UnsubscribeRepository) ActiveLeadIDs(tenantID string, leadIDs []string, channel string) (map[string]bool, error) {
	suppressed := make(map[string]bool, len(leadIDs))
	if len(leadIDs) == 0 {
		return suppressed, nil
	}

	var ids []string
	err := r.db.Model(&models.Unsubscribe{}).
		Where("tenant_id = ? AND channel = ? AND lead_id IN ? AND revoked_at IS NULL", tenantID, channel, leadIDs).
		Distinct().
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		suppressed[id] = true
	}
	return suppressed, nil
}
