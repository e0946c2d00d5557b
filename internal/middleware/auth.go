package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moonlit/gallery/internal/models"
	"moonlit/gallery/internal/service"
)

const (
	principalKey   = "principal"
	accessTokenKey = "access_token"
)

// Resolver is the part of the role gate the middleware needs.
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.Principal, error)
	Touch(ctx context.Context, principal models.Principal, ip string, userAgent string)
}

// Auth resolves the session token from the Authorization header or the
// session cookie and stores the principal on the context.
func Auth(gate Resolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing session token"})
			return
		}

		principal, err := gate.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired session"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "could not resolve session"})
			return
		}

		gate.Touch(c.Request.Context(), principal, c.ClientIP(), c.GetHeader("User-Agent"))

		c.Set(accessTokenKey, token)
		c.Set(principalKey, principal)

		c.Next()
	}
}

func TokenFromRequest(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

func Principal(c *gin.Context) (models.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}

// AccessToken returns the raw token Auth accepted.
func AccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
