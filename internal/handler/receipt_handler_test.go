package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/internal/service"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type fakeReceipts struct {
	req      models.SubmitReceiptRequest
	filename string
	content  []byte
	err      error
	filePath string
}

func (f *fakeReceipts) Submit(ctx context.Context, userID string, req models.SubmitReceiptRequest, file service.ReceiptFile) (*models.Receipt, error) {
	f.req = req
	f.filename = file.Filename
	f.content, _ = io.ReadAll(file.Content)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Receipt{ID: "r1", FeeID: req.FeeID, Status: models.ReceiptStatusPending}, nil
}

func (f *fakeReceipts) ListMine(ctx context.Context, userID string) ([]models.ReceiptDetail, error) {
	return []models.ReceiptDetail{}, nil
}

func (f *fakeReceipts) SignedURL(ctx context.Context, caller models.Reviewer, receiptID string) (*models.SignedReceiptURL, error) {
	return &models.SignedReceiptURL{URL: "/api/v1/receipts/file?token=abc"}, nil
}

func (f *fakeReceipts) OpenFile(ctx context.Context, token string) (*os.File, *models.Receipt, error) {
	if token != "good" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired link")
	}
	file, err := os.Open(f.filePath)
	if err != nil {
		return nil, nil, err
	}
	return file, &models.Receipt{ID: "r1", MimeType: "image/png"}, nil
}

func receiptRouter(svc *fakeReceipts, maxBytes int64) *gin.Engine {
	h := NewReceiptHandler(svc, maxBytes)
	router := gin.New()
	router.GET("/receipts/file", h.File)
	router.Use(withClaims(studentClaims))
	router.POST("/receipts", h.Submit)
	return router
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile(receiptFormField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/receipts", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var receiptFields = map[string]string{"fee_id": "fee-1", "academic_year": "2", "semester": "first"}

func TestReceiptSubmitPassesFormToService(t *testing.T) {
	svc := &fakeReceipts{}
	rec := perform(receiptRouter(svc, 300<<10), multipartUpload(t, receiptFields, "receipt.png", []byte("png-bytes")))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "fee-1", svc.req.FeeID)
	assert.Equal(t, 2, svc.req.AcademicYear)
	assert.Equal(t, models.AcademicSemesterFirst, svc.req.Semester)
	assert.Equal(t, "receipt.png", svc.filename)
	assert.Equal(t, []byte("png-bytes"), svc.content)
}

func TestReceiptSubmitRequiresFile(t *testing.T) {
	rec := perform(receiptRouter(&fakeReceipts{}, 300<<10), multipartUpload(t, receiptFields, "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestReceiptSubmitRejectsOversizedBody(t *testing.T) {
	svc := &fakeReceipts{}
	big := bytes.Repeat([]byte{0xff}, 200<<10)
	rec := perform(receiptRouter(svc, 1<<10), multipartUpload(t, receiptFields, "receipt.png", big))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.filename)
}

func TestReceiptSubmitRendersServiceError(t *testing.T) {
	svc := &fakeReceipts{err: appErrors.Clone(appErrors.ErrNotFound, "fee not found")}
	rec := perform(receiptRouter(svc, 300<<10), multipartUpload(t, receiptFields, "receipt.png", []byte("x")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiptFileServesSignedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r1.png")
	require.NoError(t, os.WriteFile(path, []byte("image-data"), 0o600))
	router := receiptRouter(&fakeReceipts{filePath: path}, 0)

	rec := perform(router, httptest.NewRequest(http.MethodGet, "/receipts/file?token=good", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "image-data", rec.Body.String())

	rec = perform(router, httptest.NewRequest(http.MethodGet, "/receipts/file?token=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
