package router

import (
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/handlers"
	"github.com/pulsebridge/campaign-engine-backend/internal/middleware"
	"github.com/pulsebridge/campaign-engine-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin router with the campaign engine routes
func SetupRouter(db *gorm.DB, rabbitMQService *services.RabbitMQService, dispatcher services.MessageDispatcher) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TenantHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create handlers with services
	campaignHandler := handlers.NewCampaignHandler(db, rabbitMQService)
	messageHandler := handlers.NewMessageHandler(db, rabbitMQService, dispatcher)
	leadHandler := handlers.NewLeadHandler(db)
	segmentHandler := handlers.NewSegmentHandler(db)
	templateHandler := handlers.NewTemplateHandler(db)

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		// Everything below is tenant-scoped
		tenant := api.Group("")
		tenant.Use(middleware.RequireTenant())
		{
			campaigns := tenant.Group("/campaigns")
			{
				campaigns.POST("", campaignHandler.CreateCampaign)
				campaigns.GET("/:id", campaignHandler.GetCampaignByID)
				campaigns.GET("/:id/audit", campaignHandler.GetCampaignAudit)
				campaigns.DELETE("/:id", campaignHandler.ArchiveCampaign)
				campaigns.POST("/:id/steps", campaignHandler.AddCampaignStep)
				campaigns.POST("/:id/launch", campaignHandler.LaunchCampaign)
				campaigns.POST("/:id/generate", campaignHandler.GenerateMessages)
			}

			messages := tenant.Group("/messages")
			{
				messages.GET("/:id", messageHandler.GetMessageByID)
				messages.GET("/:id/audit", messageHandler.GetMessageAudit)
				messages.POST("/:id/dispatch", messageHandler.DispatchMessage)
				messages.POST("/:id/retry", messageHandler.RetryMessage)
			}

			leads := tenant.Group("/leads")
			{
				leads.POST("", leadHandler.CreateLead)
				leads.POST("/import", leadHandler.ImportLeads)
				leads.POST("/:id/unsubscribe", leadHandler.UnsubscribeLead)
			}

			segments := tenant.Group("/segments")
			{
				segments.POST("", segmentHandler.CreateSegment)
				segments.GET("/:id", segmentHandler.GetSegmentByID)
			}

			templates := tenant.Group("/templates")
			{
				templates.POST("", templateHandler.CreateTemplate)
				templates.GET("/:id", templateHandler.GetTemplateByID)
			}
		}
	}

	return r
}
