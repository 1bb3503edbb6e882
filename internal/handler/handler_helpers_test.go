package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/middleware"
	"github.com/noah-isme/aju-clearance-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminClaims   = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@aju.edu.ng"}
	libraryClaims = &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff, Unit: models.UnitLibrary}
	studentClaims = &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
)

// withClaims stands in for the JWT middleware.
func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	}
}

func perform(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
