package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/pkg/token"
)

// AdminAuthMiddleware rejects requests whose claims lack the admin role.
// It must run after AuthMiddleware.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ClaimsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "missing claims", "data": nil})
			return
		}
		claims, ok := v.(*token.CustomClaims)
		if !ok || claims.Role != token.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "admin role required", "data": nil})
			return
		}
		c.Next()
	}
}
