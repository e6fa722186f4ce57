package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pulsebridge/campaign-engine-backend/internal/config"
	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MessageHandler struct {
	messageRepo *repository.MessageRepository
	auditRepo   *repository.AuditLogRepository
	reconciler  *services.StatusReconciler
}

func NewMessageHandler(db *gorm.DB, rabbitMQService *services.RabbitMQService, dispatcher services.MessageDispatcher) *MessageHandler {
	messageRepo := repository.NewMessageRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	engineConfig := config.GetEngineConfig()
	reconciler := services.NewStatusReconciler(
		messageRepo, campaignRepo, dispatcher, rabbitMQService, auditRepo,
		engineConfig.MaxDispatchAttempts)

	return &MessageHandler{
		messageRepo: messageRepo,
		auditRepo:   auditRepo,
		reconciler:  reconciler,
	}
}

// GetMessageByID godoc
// @Summary Get message by ID
// @Description Get a single message with its dispatch state
// @Tags messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessageByID(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	messageID := c.Param("id")

	message, err := h.messageRepo.GetByID(tenantID, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get message", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, message)
}

// GetMessageAudit godoc
// @Summary Get message audit trail
// @Description List the recorded dispatch events for a message, newest first
// @Tags messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Message ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.AuditLog
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/messages/{id}/audit [get]
func (h *MessageHandler) GetMessageAudit(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	messageID := c.Param("id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := h.auditRepo.GetBySubject(tenantID, models.MessageSubject(messageID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get audit trail", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// DispatchMessage godoc
// @Summary Dispatch a queued message
// @Description Hand one queued message to its channel provider synchronously. Normally dispatch runs through the queue; this endpoint exists for re-runs and debugging.
// @Tags messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/messages/{id}/dispatch [post]
func (h *MessageHandler) DispatchMessage(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	messageID := c.Param("id")

	if err := h.reconciler.DispatchMessage(c.Request.Context(), tenantID, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dispatch failed", "details": err.Error()})
		return
	}

	message, err := h.messageRepo.GetByID(tenantID, messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get message", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, message)
}

// RetryMessage godoc
// @Summary Retry a failed message
// @Description Reset a failed message to queued and enqueue a new dispatch attempt
// @Tags messages
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Message ID"
// @Success 202 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/messages/{id}/retry [post]
func (h *MessageHandler) RetryMessage(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)
	messageID := c.Param("id")

	if err := h.reconciler.RetryMessage(c.Request.Context(), tenantID, messageID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		case errors.Is(err, services.ErrNotRetryable), errors.Is(err, services.ErrMaxAttempts):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Retry failed", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Dispatch re-enqueued", "message_id": messageID})
}
