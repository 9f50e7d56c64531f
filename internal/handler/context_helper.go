package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edumark/school-results-api/internal/middleware"
	"github.com/edumark/school-results-api/internal/models"
)

// claimsFromContext pulls the authenticated claims stored by the JWT
// middleware. Returns nil when the route is unauthenticated.
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
