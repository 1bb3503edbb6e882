package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type reviewService interface {
	Decide(ctx context.Context, reviewer models.Reviewer, receiptID string, req models.DecideReceiptRequest) (*models.Receipt, error)
	Queue(ctx context.Context, reviewer models.Reviewer, unit *models.UnitID) ([]models.ReceiptDetail, error)
	Override(ctx context.Context, reviewer models.Reviewer, unit models.UnitID, req models.OverrideRequest) error
}

// ReviewHandler exposes the review gate to unit reviewers.
type ReviewHandler struct {
	review reviewService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(review reviewService) *ReviewHandler {
	return &ReviewHandler{review: review}
}

// Queue godoc
// @Summary Pending receipts awaiting review
// @Description Own unit for unit staff; all units, or the unit query, for super reviewers
// @Tags Review
// @Produce json
// @Param unit query string false "Unit filter for super reviewers"
// @Success 200 {object} response.Envelope
// @Router /review/queue [get]
func (h *ReviewHandler) Queue(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var unit *models.UnitID
	if raw := strings.TrimSpace(c.Query("unit")); raw != "" {
		id := models.UnitID(raw)
		unit = &id
	}
	items, err := h.review.Queue(c.Request.Context(), claims.Reviewer(), unit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Decide godoc
// @Summary Approve or reject a pending receipt
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Receipt ID"
// @Param payload body models.DecideReceiptRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /review/receipts/{id}/decision [post]
func (h *ReviewHandler) Decide(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var req models.DecideReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	receipt, err := h.review.Decide(c.Request.Context(), claims.Reviewer(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// Override godoc
// @Summary Manually clear a unit for a student
// @Tags Review
// @Accept json
// @Param unitId path string true "Unit ID"
// @Param payload body models.OverrideRequest true "Override"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /review/units/{unitId}/override [post]
func (h *ReviewHandler) Override(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var req models.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.review.Override(c.Request.Context(), claims.Reviewer(), models.UnitID(c.Param("unitId")), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
