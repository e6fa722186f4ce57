package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/config"
	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CampaignHandler struct {
	campaignRepo *repository.CampaignRepository
	stepRepo     *repository.CampaignStepRepository
	messageRepo  *repository.MessageRepository
	auditRepo    *repository.AuditLogRepository
	scheduler    *services.CampaignScheduler
	generator    *services.MessageGenerator
}

func NewCampaignHandler(db *gorm.DB, rabbitMQService *services.RabbitMQService) *CampaignHandler {
	campaignRepo := repository.NewCampaignRepository(db)
	stepRepo := repository.NewCampaignStepRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	unsubscribeRepo := repository.NewUnsubscribeRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	engineConfig := config.GetEngineConfig()
	scheduler := services.NewCampaignScheduler(campaignRepo, stepRepo, rabbitMQService, auditRepo)
	generator := services.NewMessageGenerator(
		campaignRepo, stepRepo, segmentRepo, templateRepo, leadRepo, messageRepo,
		unsubscribeRepo, services.NewPlaceholderRenderer(), rabbitMQService, auditRepo,
		engineConfig.SegmentBatchSize)

	return &CampaignHandler{
		campaignRepo: campaignRepo,
		stepRepo:     stepRepo,
		messageRepo:  messageRepo,
		auditRepo:    auditRepo,
		scheduler:    scheduler,
		generator:    generator,
	}
}

// CreateCampaign godoc
// @Summary Create a new campaign
// @Description Create a new campaign for the tenant
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body models.CreateCampaignRequest true "Create campaign request"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign := &models.Campaign{
		TenantID:   tenantID,
		Name:       req.Name,
		Type:       req.Type,
		Channel:    req.Channel,
		Status:     models.CampaignStatusDraft,
		SegmentID:  req.SegmentID,
		TemplateID: req.TemplateID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Settings:   req.Settings,
	}

	// Campaigns with a future start are picked up by the sweeper, no
	// explicit launch call needed
	if req.StartAt != nil && req.StartAt.After(time.Now()) {
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := h.campaignRepo.Create(campaign); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// GetCampaignByID godoc
// @Summary Get campaign by ID
// @Description Get a campaign with its per-status message counts
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.CampaignStatsResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaignByID(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	campaign, err := h.campaignRepo.GetByID(tenantID, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaign", "details": err.Error()})
		return
	}

	counts, err := h.messageRepo.StatusCounts(tenantID, campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get message counts", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.CampaignStatsResponse{
		Campaign: campaign,
		Messages: counts,
	})
}

// LaunchCampaign godoc
// @Summary Launch a campaign
// @Description Schedule the campaign's generation passes. A campaign can only be launched once.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.LaunchCampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/launch [post]
func (h *CampaignHandler) LaunchCampaign(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	passes, effectiveStart, err := h.scheduler.Launch(c.Request.Context(), tenantID, campaignID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		case errors.Is(err, services.ErrAlreadyLaunched):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrCampaignNotActive):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to launch campaign", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.LaunchCampaignResponse{
		CampaignID:     campaignID,
		PassesEnqueued: passes,
		EffectiveStart: effectiveStart,
	})
}

// GenerateMessages godoc
// @Summary Run a generation pass
// @Description Generate messages for a campaign (optionally a single step) synchronously. Normally passes run through the queue; this endpoint exists for re-runs and debugging.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Param request body object false "Optional step_id"
// @Success 200 {object} models.GenerateResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/generate [post]
func (h *CampaignHandler) GenerateMessages(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	var req struct {
		StepID *string `json:"step_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
			return
		}
	}

	created, skipped, err := h.generator.Generate(c.Request.Context(), tenantID, campaignID, req.StepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation pass failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		CampaignID: campaignID,
		StepID:     req.StepID,
		Created:    created,
		Skipped:    skipped,
	})
}

// GetCampaignAudit godoc
// @Summary Get campaign audit trail
// @Description List the recorded pipeline events for a campaign, newest first
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.AuditLog
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/audit [get]
func (h *CampaignHandler) GetCampaignAudit(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := h.auditRepo.GetBySubject(tenantID, models.CampaignSubject(campaignID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get audit trail", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// AddCampaignStep godoc
// @Summary Add a drip step
// @Description Add a step to a drip campaign before launch
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Param request body models.CampaignStep true "Step"
// @Success 201 {object} models.CampaignStep
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/steps [post]
func (h *CampaignHandler) AddCampaignStep(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	campaign, err := h.campaignRepo.GetByID(tenantID, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaign", "details": err.Error()})
		return
	}
	if campaign.LaunchedAt != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cannot add steps to a launched campaign"})
		return
	}

	var step models.CampaignStep
	if err := c.ShouldBindJSON(&step); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	step.ID = ""
	step.TenantID = tenantID
	step.CampaignID = campaignID
	if step.Channel == "" {
		step.Channel = campaign.Channel
	}
	if step.Position <= 0 {
		step.Position = 1
	}
	step.IsActive = true

	if err := h.stepRepo.Create(&step); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create step", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, &step)
}

// ArchiveCampaign godoc
// @Summary Archive a campaign
// @Description Soft-retire a campaign. Archived campaigns never produce new messages.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Campaign ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) ArchiveCampaign(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	campaignID := c.Param("id")

	if _, err := h.campaignRepo.GetByID(tenantID, campaignID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaign", "details": err.Error()})
		return
	}

	if err := h.campaignRepo.Archive(tenantID, campaignID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive campaign", "details": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
