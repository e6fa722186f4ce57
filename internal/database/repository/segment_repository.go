package repository

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type SegmentRepository struct {
	db *gorm.DB
}

func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Create creates a new segment
func (r *SegmentRepository) Create(segment *models.Segment) error {
	return r.db.Create(segment).Error
}

// GetByID retrieves a segment scoped to a tenant
func (r *SegmentRepository) GetByID(tenantID, id string) (*models.Segment, error) {
	var segment models.Segment
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&segment).Error
	if err != nil {
		return nil, err
	}
	return &segment, nil
}
