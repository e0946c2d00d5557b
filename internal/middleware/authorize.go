package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moonlit/gallery/internal/models"
)

// RequireRoles must run after Auth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal, ok := Principal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}

		if _, ok := roleSet[principal.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "role " + string(principal.Role) + " may not do this"})
			return
		}

		c.Next()
	}
}
