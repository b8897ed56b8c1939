package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserMiddleware resolves the calling user. Sessions live in the web tier;
// this service trusts the X-User-ID header set by the gateway after
// authentication.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
