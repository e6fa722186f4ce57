package handlers

import (
	"errors"
	"net/http"

	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SegmentHandler struct {
	segmentRepo *repository.SegmentRepository
}

func NewSegmentHandler(db *gorm.DB) *SegmentHandler {
	return &SegmentHandler{segmentRepo: repository.NewSegmentRepository(db)}
}

// CreateSegment godoc
// @Summary Create a segment
// @Description Create a segment with a rule tree. Invalid rules are rejected here rather than silently matching nobody later.
// @Tags segments
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param request body models.Segment true "Segment"
// @Success 201 {object} models.Segment
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/segments [post]
func (h *SegmentHandler) CreateSegment(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	var segment models.Segment
	if err := c.ShouldBindJSON(&segment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	segment.ID = ""
	segment.TenantID = tenantID

	rules, err := segment.ParsedRules()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule tree", "details": err.Error()})
		return
	}
	if rules != nil {
		if err := rules.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule tree", "details": err.Error()})
			return
		}
	}

	if err := h.segmentRepo.Create(&segment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create segment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, segment)
}

// GetSegmentByID godoc
// @Summary Get segment by ID
// @Tags segments
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant ID"
// @Param id path string true "Segment ID"
// @Success 200 {object} models.Segment
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/segments/{id} [get]
func (h *SegmentHandler) GetSegmentByID(c *gin.Context) {
	tenantID := c.MustGet("tenant_id").(string)

	segment, err := h.segmentRepo.GetByID(tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get segment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, segment)
}
