package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studio/api/internal/service"
)

const identityKey = "identity"

// Authenticator resolves a bearer token to the caller behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Identity, error)
}

// Auth rejects requests without a bearer token (401) or with one that no
// active session backs (403).
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the caller when a bearer token is sent and lets
// anonymous requests through. A token that is sent but rejected still fails.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" && !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, auth Authenticator, token string) bool {
	identity, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
		case errors.Is(err, service.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid_token"})
		default:
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		}
		return false
	}
	c.Set(identityKey, identity)
	return true
}

// CurrentIdentity returns the caller attached by Auth or OptionalAuth.
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return service.Identity{}, false
	}
	identity, ok := val.(service.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
