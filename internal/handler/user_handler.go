package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type adminUserService interface {
	List(ctx context.Context, actor models.Reviewer) ([]models.Profile, error)
	Create(ctx context.Context, actor models.Reviewer, req models.CreateUserRequest, meta models.LoginRequest) (string, error)
	Delete(ctx context.Context, actor models.Reviewer, req models.DeleteUserRequest, meta models.LoginRequest) error
}

// UserHandler serves the admin account endpoints. Responses are bare JSON
// bodies and errors render as {"error": message}.
type UserHandler struct {
	service adminUserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc adminUserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List user profiles
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string][]models.Profile
// @Failure 403 {object} response.AdminError
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c, response.AdminFailure)
	if !ok {
		return
	}
	users, err := h.service.List(c.Request.Context(), claims.Reviewer())
	if err != nil {
		response.AdminFailure(c, err)
		return
	}
	response.Admin(c, gin.H{"users": users})
}

// Create godoc
// @Summary Create user
// @Description Creates the auth user, profile and, for students, the student record
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateUserRequest true "New user"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.AdminError
// @Failure 403 {object} response.AdminError
// @Failure 500 {object} response.AdminError
// @Router /create-user [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c, response.AdminFailure)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AdminFailure(c, invalidPayload(err))
		return
	}
	userID, err := h.service.Create(c.Request.Context(), claims.Reviewer(), req, requestMeta(c))
	if err != nil {
		response.AdminFailure(c, err)
		return
	}
	response.Admin(c, gin.H{"message": "User created successfully", "userId": userID})
}

// Delete godoc
// @Summary Delete user
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.DeleteUserRequest true "User to delete"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} response.AdminError
// @Failure 403 {object} response.AdminError
// @Router /admin/users [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c, response.AdminFailure)
	if !ok {
		return
	}
	var req models.DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AdminFailure(c, invalidPayload(err))
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.Reviewer(), req, requestMeta(c)); err != nil {
		response.AdminFailure(c, err)
		return
	}
	response.Admin(c, gin.H{"success": true})
}
