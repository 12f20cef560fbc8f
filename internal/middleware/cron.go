package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const cronSecretHeader = "X-Cron-Secret"

// CronSecret guards scheduler-facing endpoints. With an empty secret every
// request passes. Hosted schedulers send the secret as a bearer token, others
// may use the X-Cron-Secret header.
func CronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(cronSecretHeader)
		if provided == "" {
			provided = bearerToken(c)
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}
