package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/middleware"
	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

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

// requireClaims renders an unauthorized error through render when the
// request carries no claims.
func requireClaims(c *gin.Context, render response.ErrorRenderer) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		render(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
