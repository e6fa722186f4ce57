package repository

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type CampaignStepRepository struct {
	db *gorm.DB
}

func NewCampaignStepRepository(db *gorm.DB) *CampaignStepRepository {
	return &CampaignStepRepository{db: db}
}

// Create creates a new campaign step
func (r *CampaignStepRepository) Create(step *models.CampaignStep) error {
	return r.db.Create(step).Error
}

// GetByID retrieves a step scoped to a tenant
func (r *CampaignStepRepository) GetByID(tenantID, id string) (*models.CampaignStep, error) {
	var step models.CampaignStep
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// ListActiveByCampaign retrieves a campaign's active steps in position order
func (r *CampaignStepRepository) ListActiveByCampaign(tenantID, campaignID string) ([]*models.CampaignStep, error) {
	var steps []*models.CampaignStep
	err := r.db.Where("tenant_id = ? AND campaign_id = ? AND is_active = ?", tenantID, campaignID, true).
		Order("position asc").
		Find(&steps).Error
	return steps, err
}
