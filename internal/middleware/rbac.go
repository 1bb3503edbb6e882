package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

// RequireRoles rejects callers whose role is not listed. It must run after
// JWT.
func RequireRoles(render response.ErrorRenderer, roles ...models.UserRole) gin.HandlerFunc {
	if render == nil {
		render = response.Error
	}
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			render(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			render(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			render(c, appErrors.Clone(appErrors.ErrForbidden, "Insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
