package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// streamTokenParam carries the access token for EventSource clients, which
// cannot set headers.
const streamTokenParam = "access_token"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid bearer token. Failures are
// rendered with render, or the standard envelope when render is nil.
func JWT(validator tokenValidator, render response.ErrorRenderer) gin.HandlerFunc {
	if render == nil {
		render = response.Error
	}
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			render(c, err)
			c.Abort()
			return
		}
		authenticate(c, validator, token, render)
	}
}

// StreamJWT is JWT for server-sent event routes: the token may also arrive
// as the access_token query parameter.
func StreamJWT(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			token = c.Query(streamTokenParam)
		}
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		authenticate(c, validator, token, response.Error)
	}
}

func authenticate(c *gin.Context, validator tokenValidator, token string, render response.ErrorRenderer) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		render(c, err)
		c.Abort()
		return
	}
	c.Set(ContextUserKey, claims)
	c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
