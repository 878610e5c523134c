package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/models"
	appErrors "github.com/acadrecords/portal-api/pkg/errors"
	"github.com/acadrecords/portal-api/pkg/response"
)

// RoleSelf is a pseudo-role accepted by RequireRoles: it admits a caller
// whose user id equals the :id route parameter, whatever their role.
const RoleSelf models.UserRole = "SELF"

// RequireRoles enforces role-based access control. The caller must hold
// one of the listed roles, or match the :id parameter when RoleSelf is
// among them.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowSelf := false
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		if role == RoleSelf {
			allowSelf = true
			continue
		}
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
