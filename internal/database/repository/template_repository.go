package repository

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template
func (r *TemplateRepository) Create(template *models.Template) error {
	return r.db.Create(template).Error
}

// GetByID retrieves a template scoped to a tenant
func (r *TemplateRepository) GetByID(tenantID, id string) (*models.Template, error) {
	var template models.Template
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}
