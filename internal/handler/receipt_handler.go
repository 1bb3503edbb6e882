package handler

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/internal/service"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

const receiptFormField = "receipt"

type receiptService interface {
	Submit(ctx context.Context, userID string, req models.SubmitReceiptRequest, file service.ReceiptFile) (*models.Receipt, error)
	ListMine(ctx context.Context, userID string) ([]models.ReceiptDetail, error)
	SignedURL(ctx context.Context, caller models.Reviewer, receiptID string) (*models.SignedReceiptURL, error)
	OpenFile(ctx context.Context, token string) (*os.File, *models.Receipt, error)
}

// ReceiptHandler serves receipt uploads and downloads.
type ReceiptHandler struct {
	receipts receiptService
	maxBytes int64
}

// NewReceiptHandler constructs ReceiptHandler. maxBytes bounds the multipart
// body; the service applies the exact file limit.
func NewReceiptHandler(receipts receiptService, maxBytes int64) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, maxBytes: maxBytes}
}

// Submit godoc
// @Summary Upload a payment receipt
// @Tags Receipts
// @Accept multipart/form-data
// @Produce json
// @Param receipt formData file true "Receipt image (jpeg, png or webp)"
// @Param fee_id formData string true "Fee ID"
// @Param academic_year formData int true "Academic year (1-7)"
// @Param semester formData string true "first or second"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /receipts [post]
func (h *ReceiptHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	if h.maxBytes > 0 {
		// Headroom for the other form fields and multipart framing.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64<<10)
	}

	header, err := c.FormFile(receiptFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "receipt file is too large"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "receipt file is required"))
		return
	}
	var req models.SubmitReceiptRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable receipt file"))
		return
	}
	defer file.Close()

	receipt, err := h.receipts.Submit(c.Request.Context(), claims.UserID, req, service.ReceiptFile{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// ListMine godoc
// @Summary List own receipts for the current semester
// @Tags Receipts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /receipts/mine [get]
func (h *ReceiptHandler) ListMine(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	receipts, err := h.receipts.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipts, nil)
}

// SignedURL godoc
// @Summary Get a time-limited link to a receipt image
// @Tags Receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /receipts/{id}/url [get]
func (h *ReceiptHandler) SignedURL(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	link, err := h.receipts.SignedURL(c.Request.Context(), claims.Reviewer(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// File godoc
// @Summary Download a receipt image through a signed token
// @Tags Receipts
// @Produce image/jpeg,image/png,image/webp
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /receipts/file [get]
func (h *ReceiptHandler) File(c *gin.Context) {
	file, receipt, err := h.receipts.OpenFile(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Backend(err, "failed to read receipt file"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", receipt.MimeType)
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
