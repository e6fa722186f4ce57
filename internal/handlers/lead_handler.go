package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services/excel"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LeadHandler struct {
	leadRepo        *repository.LeadRepository
	unsubscribeRepo *repository.UnsubscribeRepository
	importService   *excel.Service
}

func NewLeadHandler(db *gorm.DB) *LeadHandler {
	leadRepo := repository.NewLeadRepository(db)
	return &LeadHandler{
		leadRepo:        leadRepo,
		unsubscribeRepo: repository.NewUnsubscribeRepository(db),
		importService:   excel.NewLeadImportService(leadRepo),
	}
}

// CreateLead godoc
// @Summary Create a lead
// @Description Create a single lead for the tenant
// @Tags leads
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body models.Lead true "Lead"
// @Success 201 {object} models.Lead
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}
	if lead.Email == "" && lead.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lead needs an email or phone"})
		return
	}

	lead.ID = ""
	lead.TenantID = tenantID
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	if err := h.leadRepo.Create(&lead); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lead", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// UnsubscribeLead godoc
// @Summary Record a channel opt-out
// @Description Suppress future messages to this lead on one channel. Other channels are unaffected.
// @Tags leads
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Lead ID"
// @Param request body object true "Channel and optional reason"
// @Success 201 {object} models.Unsubscribe
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/leads/{id}/unsubscribe [post]
func (h *LeadHandler) UnsubscribeLead(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	leadID := c.Param("id")

	var req struct {
		Channel string `json:"channel" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	if _, err := h.leadRepo.GetByID(tenantID, leadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get lead", "details": err.Error()})
		return
	}

	unsubscribe := &models.Unsubscribe{
		TenantID: tenantID,
		LeadID:   leadID,
		Channel:  req.Channel,
		Reason:   req.Reason,
	}
	if err := h.unsubscribeRepo.Create(unsubscribe); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record unsubscribe", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, unsubscribe)
}

// ImportLeads godoc
// @Summary Import leads from Excel
// @Description Upload an .xlsx file with a header row; recognized columns are email, phone, first_name, last_name, company, country, status, source
// @Tags leads
// @Accept multipart/form-data
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param file formData file true "Excel file"
// @Success 200 {object} excel.ImportResult
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/leads/import [post]
func (h *LeadHandler) ImportLeads(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "details": err.Error()})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .xlsx files are supported"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file", "details": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.importService.ImportLeads(tenantID, file)
	if err != nil {
		if strings.Contains(err.Error(), "header row") || strings.Contains(err.Error(), "excel file") || strings.Contains(err.Error(), "sheet") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
