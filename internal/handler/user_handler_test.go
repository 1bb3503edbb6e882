package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type fakeAdminUsers struct {
	profiles  []models.Profile
	createErr error
	deleteErr error
	created   models.CreateUserRequest
	deleted   string
}

func (f *fakeAdminUsers) List(ctx context.Context, actor models.Reviewer) ([]models.Profile, error) {
	return f.profiles, nil
}

func (f *fakeAdminUsers) Create(ctx context.Context, actor models.Reviewer, req models.CreateUserRequest, meta models.LoginRequest) (string, error) {
	f.created = req
	if f.createErr != nil {
		return "", f.createErr
	}
	return "new-user", nil
}

func (f *fakeAdminUsers) Delete(ctx context.Context, actor models.Reviewer, req models.DeleteUserRequest, meta models.LoginRequest) error {
	f.deleted = req.UserID
	return f.deleteErr
}

func adminRouter(svc *fakeAdminUsers, claims *models.JWTClaims) *gin.Engine {
	h := NewUserHandler(svc)
	router := gin.New()
	router.Use(withClaims(claims))
	router.GET("/api/admin/users", h.List)
	router.DELETE("/api/admin/users", h.Delete)
	router.POST("/api/create-user", h.Create)
	return router
}

func TestAdminListUsers(t *testing.T) {
	svc := &fakeAdminUsers{profiles: []models.Profile{{UserID: "u1", Name: "Ada", Role: models.RoleStudent}}}
	rec := perform(adminRouter(svc, adminClaims), httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Users []models.Profile `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Users, 1)
	assert.Equal(t, "Ada", body.Users[0].Name)
}

func TestAdminCreateUser(t *testing.T) {
	svc := &fakeAdminUsers{}
	payload := `{"name":"Ada","email":"ada@aju.edu.ng","password":"secret1","role":"student","trackNo":"AJU/21/001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/create-user", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := perform(adminRouter(svc, adminClaims), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User created successfully","userId":"new-user"}`, rec.Body.String())
	require.NotNil(t, svc.created.TrackNo)
	assert.Equal(t, "AJU/21/001", *svc.created.TrackNo)
}

func TestAdminErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		claims *models.JWTClaims
		status int
	}{
		{"duplicate email", appErrors.Clone(appErrors.ErrValidation, "A user with this email already exists"), adminClaims, http.StatusBadRequest},
		{"forbidden", appErrors.Clone(appErrors.ErrForbidden, "Insufficient permissions"), studentClaims, http.StatusForbidden},
		{"backend", appErrors.Backend(assert.AnError, "failed to create user"), adminClaims, http.StatusInternalServerError},
		{"no claims", nil, nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeAdminUsers{createErr: tc.err}
			req := httptest.NewRequest(http.MethodPost, "/api/create-user", strings.NewReader(`{"name":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := perform(adminRouter(svc, tc.claims), req)

			assert.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAdminDeleteUser(t *testing.T) {
	svc := &fakeAdminUsers{}
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users", strings.NewReader(`{"userId":"u9"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := perform(adminRouter(svc, adminClaims), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "u9", svc.deleted)

	svc.deleteErr = appErrors.Clone(appErrors.ErrValidation, "Cannot delete your own account")
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/users", strings.NewReader(`{"userId":"admin-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = perform(adminRouter(svc, adminClaims), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Cannot delete your own account"}`, rec.Body.String())
}
