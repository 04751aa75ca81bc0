package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/progress-tracker-api/internal/models"
	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
	"github.com/noah-isme/progress-tracker-api/pkg/response"
)

// RequireRoles only lets callers with one of roles through. Course-level
// permissions are checked by the services; this is the coarse role gate.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this endpoint"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfOrRoles admits the user named by the path parameter param, or
// any caller holding one of roles.
func RequireSelfOrRoles(param string, roles ...models.UserRole) gin.HandlerFunc {
	gate := RequireRoles(roles...)
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims != nil && c.Param(param) != "" && c.Param(param) == claims.UserID {
			c.Next()
			return
		}
		gate(c)
	}
}
