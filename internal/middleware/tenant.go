package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantHeader is set by the upstream gateway after it resolves the tenant.
const TenantHeader = "X-Tenant-ID"

// RequireTenant extracts the tenant id from the request header and stores it
// in the context. The value is trusted as-is, tenant resolution happens
// upstream.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(TenantHeader)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing " + TenantHeader + " header"})
			return
		}
		c.Set("tenant_id", tenantID)
		c.Next()
	}
}
