package repository

import (
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create creates a new audit entry
func (r *AuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// GetBySubject retrieves audit entries for an entity, newest first
func (r *AuditLogRepository) GetBySubject(tenantID string, subject models.AuditSubject, limit, offset int) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := r.db.Where("tenant_id = ? AND subject_type = ? AND subject_id = ?", tenantID, subject.Type, subject.ID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}
