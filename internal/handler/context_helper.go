package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/middleware"
	"github.com/acadrecords/portal-api/internal/models"
)

// claimsFromContext returns the JWT claims the auth middleware stored, or
// nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID returns the authenticated user's id for audit attribution, or ""
// when the request carries no claims.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
