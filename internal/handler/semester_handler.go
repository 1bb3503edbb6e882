package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type rolloverService interface {
	Current(ctx context.Context) (*models.Semester, error)
	List(ctx context.Context) ([]models.Semester, error)
	StartNewSemester(ctx context.Context, actor models.Reviewer, req models.RolloverRequest) (*models.RolloverResult, error)
}

// SemesterHandler exposes semesters and the rollover operation.
type SemesterHandler struct {
	semesters rolloverService
}

// NewSemesterHandler constructs SemesterHandler.
func NewSemesterHandler(semesters rolloverService) *SemesterHandler {
	return &SemesterHandler{semesters: semesters}
}

// Current godoc
// @Summary Current semester
// @Tags Semesters
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /semesters/current [get]
func (h *SemesterHandler) Current(c *gin.Context) {
	semester, err := h.semesters.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// List godoc
// @Summary Semester history, newest first
// @Tags Semesters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	semesters, err := h.semesters.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, nil)
}

// Rollover godoc
// @Summary Start a new semester
// @Description Archives and resets the clearance ledger. Requires confirm=true.
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body models.RolloverRequest true "New semester"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters/rollover [post]
func (h *SemesterHandler) Rollover(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var req models.RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.semesters.StartNewSemester(c.Request.Context(), claims.Reviewer(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
