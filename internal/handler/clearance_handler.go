package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type clearanceService interface {
	Me(ctx context.Context, userID string) (*models.StudentClearance, error)
	Lookup(ctx context.Context, trackNo string) (*models.StudentClearance, error)
	StudentProgress(ctx context.Context, studentID string) (*models.StudentClearance, error)
	UnitLedger(ctx context.Context, reviewer models.Reviewer, unit models.UnitID, status *models.ClearanceState) ([]models.UnitLedgerEntry, error)
	ExportUnitLedger(ctx context.Context, w io.Writer, reviewer models.Reviewer, unit models.UnitID, status *models.ClearanceState) error
	ExportContentType() string
	Slip(ctx context.Context, userID string) (*models.ClearanceSlip, error)
	SlipPDF(ctx context.Context, userID string) ([]byte, *models.ClearanceSlip, error)
	VerifySlip(ctx context.Context, token string) (*models.SlipVerification, error)
}

// ClearanceHandler serves progress, unit ledgers and clearance slips.
type ClearanceHandler struct {
	clearance clearanceService
}

// NewClearanceHandler constructs ClearanceHandler.
func NewClearanceHandler(clearance clearanceService) *ClearanceHandler {
	return &ClearanceHandler{clearance: clearance}
}

// Me godoc
// @Summary Own clearance progress
// @Tags Clearance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /clearance/me [get]
func (h *ClearanceHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	result, err := h.clearance.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Lookup godoc
// @Summary Look up a student's clearance by track number
// @Tags Clearance
// @Produce json
// @Param trackNo query string true "Track number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clearance/lookup [get]
func (h *ClearanceHandler) Lookup(c *gin.Context) {
	trackNo := strings.TrimSpace(c.Query("trackNo"))
	if trackNo == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "trackNo is required"))
		return
	}
	result, err := h.clearance.Lookup(c.Request.Context(), trackNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Student godoc
// @Summary A student's clearance progress
// @Tags Clearance
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /clearance/students/{studentId} [get]
func (h *ClearanceHandler) Student(c *gin.Context) {
	result, err := h.clearance.StudentProgress(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UnitLedger godoc
// @Summary Effective clearance state of every student for a unit
// @Tags Clearance
// @Produce json
// @Param unitId path string true "Unit ID"
// @Param status query string false "State filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /clearance/units/{unitId} [get]
func (h *ClearanceHandler) UnitLedger(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	status, err := statusFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.clearance.UnitLedger(c.Request.Context(), claims.Reviewer(), models.UnitID(c.Param("unitId")), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportUnitLedger godoc
// @Summary Export a unit ledger as CSV
// @Tags Clearance
// @Produce text/csv
// @Param unitId path string true "Unit ID"
// @Param status query string false "State filter"
// @Success 200 {file} binary
// @Router /clearance/units/{unitId}/export [get]
func (h *ClearanceHandler) ExportUnitLedger(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	status, err := statusFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	unit := models.UnitID(c.Param("unitId"))
	// Buffered so failures still render as JSON.
	var buf bytes.Buffer
	if err := h.clearance.ExportUnitLedger(c.Request.Context(), &buf, claims.Reviewer(), unit, status); err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("clearance-%s-%s.csv", unit, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, h.clearance.ExportContentType(), buf.Bytes())
}

// Slip godoc
// @Summary Issue the caller's clearance slip
// @Tags Clearance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /clearance/slip [get]
func (h *ClearanceHandler) Slip(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	slip, err := h.clearance.Slip(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slip, nil)
}

// SlipPDF godoc
// @Summary Download the clearance slip as PDF
// @Tags Clearance
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /clearance/slip/pdf [get]
func (h *ClearanceHandler) SlipPDF(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	out, slip, err := h.clearance.SlipPDF(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	name := strings.NewReplacer("/", "-", " ", "").Replace(slip.TrackNo)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=clearance-slip-%s.pdf", name))
	c.Data(http.StatusOK, "application/pdf", out)
}

// VerifySlip godoc
// @Summary Verify a clearance slip token
// @Tags Clearance
// @Produce json
// @Param token query string true "Slip verification token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /clearance/slip/verify [get]
func (h *ClearanceHandler) VerifySlip(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.clearance.VerifySlip(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func statusFilter(c *gin.Context) (*models.ClearanceState, error) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, nil
	}
	state, err := models.ParseClearanceState(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown status filter")
	}
	return &state, nil
}
