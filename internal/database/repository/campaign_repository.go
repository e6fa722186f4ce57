package repository

import (
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// GetByID retrieves a campaign scoped to a tenant
func (r *CampaignRepository) GetByID(tenantID, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).
		Preload("Steps").
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// Update updates a campaign
func (r *CampaignRepository) Update(campaign *models.Campaign) error {
	return r.db.Save(campaign).Error
}

// MarkLaunched sets launched_at exactly once. Returns false when the
// campaign was already launched, which makes double-launch a no-op.
func (r *CampaignRepository) MarkLaunched(tenantID, id string) (bool, error) {
	result := r.db.Model(&models.Campaign{}).
		Where("tenant_id = ? AND id = ? AND launched_at IS NULL", tenantID, id).
		Update("launched_at", time.Now())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TransitionStatus moves a campaign between statuses, guarded by the set of
// allowed source statuses. Returns whether a row actually changed, so
// callers can audit a transition exactly once.
func (r *CampaignRepository) TransitionStatus(tenantID, id string, from []string, to string) (bool, error) {
	result := r.db.Model(&models.Campaign{}).
		Where("tenant_id = ? AND id = ? AND status IN ? AND status <> ?", tenantID, id, from, to).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListDueScheduled returns scheduled, not-yet-launched campaigns whose start
// time has passed (used by the launch sweeper)
func (r *CampaignRepository) ListDueScheduled(now time.Time, limit int) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.Where("status = ? AND launched_at IS NULL AND start_at IS NOT NULL AND start_at <= ? AND archived_at IS NULL",
		models.CampaignStatusScheduled, now).
		Order("start_at asc").
		Limit(limit).
		Find(&campaigns).Error
	return campaigns, err
}

// Archive soft-retires a campaign; referenced messages keep it undeletable
func (r *CampaignRepository) Archive(tenantID, id string) error {
	return r.db.Model(&models.Campaign{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("archived_at", time.Now()).Error
}
