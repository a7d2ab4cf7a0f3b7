package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolplan/timetable-api/internal/models"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
	"github.com/schoolplan/timetable-api/pkg/response"
)

// RequireRoles blocks callers whose role is not in the allowed set.
// Organization-level scoping happens in the services; this only gates by
// role.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
