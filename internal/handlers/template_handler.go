package handlers

import (
	"errors"
	"net/http"

	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TemplateHandler struct {
	templateRepo *repository.TemplateRepository
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{templateRepo: repository.NewTemplateRepository(db)}
}

// CreateTemplate godoc
// @Summary Create a message template
// @Tags templates
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body models.Template true "Template"
// @Success 201 {object} models.Template
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	var template models.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}
	if template.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template body is required"})
		return
	}

	template.ID = ""
	template.TenantID = tenantID

	if err := h.templateRepo.Create(&template); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, template)
}

// GetTemplateByID godoc
// @Summary Get template by ID
// @Tags templates
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Template ID"
// @Success 200 {object} models.Template
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplateByID(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	template, err := h.templateRepo.GetByID(tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get template", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, template)
}
