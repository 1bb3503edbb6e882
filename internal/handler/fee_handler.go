package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/middleware"
	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type feeService interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, bool, error)
	Get(ctx context.Context, id string) (*models.Fee, error)
	Create(ctx context.Context, reviewer models.Reviewer, req models.CreateFeeRequest) (*models.Fee, error)
	Update(ctx context.Context, reviewer models.Reviewer, id string, req models.UpdateFeeRequest) (*models.Fee, error)
	Delete(ctx context.Context, reviewer models.Reviewer, id string) error
}

// FeeHandler serves the fee catalog.
type FeeHandler struct {
	fees feeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees feeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// List godoc
// @Summary List fees
// @Tags Fees
// @Produce json
// @Param unit query string false "Owning unit"
// @Param department query string false "Department; fees without a department always match"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	var filter models.FeeFilter
	if unit := strings.TrimSpace(c.Query("unit")); unit != "" {
		id := models.UnitID(unit)
		filter.UnitID = &id
	}
	if department := strings.TrimSpace(c.Query("department")); department != "" {
		filter.Department = &department
	}
	fees, hit, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, fees, nil, middleware.Meta(c))
}

// Get godoc
// @Summary Get fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.fees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Create godoc
// @Summary Create fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body models.CreateFeeRequest true "Fee"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var req models.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	fee, err := h.fees.Create(c.Request.Context(), claims.Reviewer(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// Update godoc
// @Summary Update fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body models.UpdateFeeRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [patch]
func (h *FeeHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	var req models.UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	fee, err := h.fees.Update(c.Request.Context(), claims.Reviewer(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete fee
// @Description Refused while receipts reference the fee
// @Tags Fees
// @Param id path string true "Fee ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	if err := h.fees.Delete(c.Request.Context(), claims.Reviewer(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
