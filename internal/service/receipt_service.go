package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

const sniffLen = 512

type receiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id string) (*models.Receipt, error)
	FindPending(ctx context.Context, studentID, feeID, semesterID string) (*models.Receipt, error)
	DeletePending(ctx context.Context, id string) error
	ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.ReceiptDetail, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type feeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Fee, error)
}

type currentSemester interface {
	Current(ctx context.Context) (*models.Semester, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Remove(ctx context.Context, key string) error
}

type urlSigner interface {
	Generate(subject, payload string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReceiptFile is an uploaded receipt image as received from the client.
type ReceiptFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ReceiptPolicy bounds what Receipt Intake accepts.
type ReceiptPolicy struct {
	MaxBytes        int64
	AllowedMIMEs    []string
	AllowedExts     []string
	MaxAcademicYear int
	FileURLPath     string
}

// ReceiptService implements Receipt Intake and receipt downloads.
type ReceiptService struct {
	receipts  receiptRepository
	students  studentLookup
	fees      feeLookup
	semesters currentSemester
	ledger    *Ledger
	tx        txRunner
	store     objectStore
	signer    urlSigner
	events    eventEmitter
	review    ReviewPolicy
	policy    ReceiptPolicy
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// ReceiptServiceDeps groups the collaborators of ReceiptService.
type ReceiptServiceDeps struct {
	Receipts  receiptRepository
	Students  studentLookup
	Fees      feeLookup
	Semesters currentSemester
	Ledger    *Ledger
	Tx        txRunner
	Store     objectStore
	Signer    urlSigner
	Events    eventEmitter
	Review    ReviewPolicy
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewReceiptService constructs a ReceiptService.
func NewReceiptService(deps ReceiptServiceDeps, policy ReceiptPolicy) *ReceiptService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if policy.MaxAcademicYear <= 0 {
		policy.MaxAcademicYear = 7
	}
	if policy.FileURLPath == "" {
		policy.FileURLPath = "/api/v1/receipts/file"
	}
	return &ReceiptService{
		receipts:  deps.Receipts,
		students:  deps.Students,
		fees:      deps.Fees,
		semesters: deps.Semesters,
		ledger:    deps.Ledger,
		tx:        deps.Tx,
		store:     deps.Store,
		signer:    deps.Signer,
		events:    deps.Events,
		review:    deps.Review,
		policy:    policy,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Submit validates and stores a receipt for the student linked to userID.
// A pending receipt for the same fee and semester is replaced.
func (s *ReceiptService) Submit(ctx context.Context, userID string, req models.SubmitReceiptRequest, file ReceiptFile) (*models.Receipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}
	if req.AcademicYear > s.policy.MaxAcademicYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year must be between 1 and %d", s.policy.MaxAcademicYear))
	}
	content, mimeType, ext, err := s.inspect(file)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Backend(err, "failed to load student")
	}
	fee, err := s.fees.FindByID(ctx, req.FeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Backend(err, "failed to load fee")
	}
	semester, err := s.currentSemester(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := fmt.Sprintf("receipts/%s-%s-%d.%s", student.ID, fee.ID, now.UnixMilli(), ext)
	written, err := s.store.Upload(ctx, key, io.LimitReader(content, s.policy.MaxBytes+1))
	if err != nil {
		return nil, appErrors.Backend(err, "failed to store receipt file")
	}
	if written > s.policy.MaxBytes {
		s.removeFile(ctx, key)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("receipt must not exceed %d KB", s.policy.MaxBytes/1024))
	}

	receipt := &models.Receipt{
		StudentID:    student.ID,
		FeeID:        fee.ID,
		UnitID:       fee.UnitID,
		SemesterID:   semester.ID,
		FilePath:     key,
		MimeType:     mimeType,
		SizeBytes:    written,
		Amount:       fee.Amount,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Status:       models.ReceiptStatusPending,
		UploadedAt:   now,
	}

	var replaced *models.Receipt
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.receipts.FindPending(ctx, student.ID, fee.ID, semester.ID)
		switch {
		case err == nil:
			if err := s.receipts.DeletePending(ctx, existing.ID); err != nil {
				return fmt.Errorf("replace pending receipt: %w", err)
			}
			replaced = existing
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		if err := s.receipts.Create(ctx, receipt); err != nil {
			return err
		}
		_, err = s.ledger.Apply(ctx, LedgerChange{
			StudentID:  student.ID,
			UnitID:     fee.UnitID,
			SemesterID: semester.ID,
			Trigger:    models.TriggerIntake,
			ActorID:    userID,
		})
		return err
	})
	if err != nil {
		s.removeFile(ctx, key)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Backend(err, "failed to record receipt")
	}

	if replaced != nil {
		s.removeFile(ctx, replaced.FilePath)
	}
	s.metrics.RecordReceiptSubmitted(fee.UnitID)
	s.events.Emit(ctx, models.DomainEvent{
		Type:       models.EventReceiptSubmitted,
		StudentID:  student.ID,
		UnitID:     fee.UnitID,
		ReceiptID:  receipt.ID,
		SemesterID: semester.ID,
		State:      models.StatePending,
	})
	s.logger.Info("receipt submitted",
		zap.String("receipt_id", receipt.ID),
		zap.String("student_id", student.ID),
		zap.String("unit_id", string(fee.UnitID)),
		zap.Bool("resubmission", replaced != nil),
	)
	return receipt, nil
}

// ListMine returns the caller's receipts for the current semester.
func (s *ReceiptService) ListMine(ctx context.Context, userID string) ([]models.ReceiptDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Backend(err, "failed to load student")
	}
	semester, err := s.currentSemester(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receipts.ListByStudent(ctx, student.ID, semester.ID)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list receipts")
	}
	if receipts == nil {
		receipts = []models.ReceiptDetail{}
	}
	return receipts, nil
}

// SignedURL returns a time-limited link to the receipt image for its owner
// or a reviewer of its unit.
func (s *ReceiptService) SignedURL(ctx context.Context, caller models.Reviewer, receiptID string) (*models.SignedReceiptURL, error) {
	receipt, err := s.receipts.FindByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Backend(err, "failed to load receipt")
	}
	if err := s.authorizeView(ctx, caller, receipt); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(receipt.ID, receipt.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to sign receipt url")
	}
	return &models.SignedReceiptURL{
		URL:       s.policy.FileURLPath + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenFile resolves a signed token to the stored image. The caller closes
// the returned file.
func (s *ReceiptService) OpenFile(ctx context.Context, token string) (*os.File, *models.Receipt, error) {
	receiptID, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired link")
	}
	receipt, err := s.receipts.FindByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, nil, appErrors.Backend(err, "failed to load receipt")
	}
	if receipt.FilePath != key {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt file no longer available")
	}
	f, err := s.store.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "receipt file no longer available")
		}
		return nil, nil, appErrors.Backend(err, "failed to open receipt file")
	}
	return f, receipt, nil
}

func (s *ReceiptService) authorizeView(ctx context.Context, caller models.Reviewer, receipt *models.Receipt) error {
	if caller.Role == models.RoleStudent {
		student, err := s.students.FindByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrForbidden, "receipt belongs to another student")
			}
			return appErrors.Backend(err, "failed to load student")
		}
		if student.ID != receipt.StudentID {
			return appErrors.Clone(appErrors.ErrForbidden, "receipt belongs to another student")
		}
		return nil
	}
	if !s.review.CanReview(caller, receipt.UnitID) {
		return appErrors.Clone(appErrors.ErrForbidden, "receipt belongs to another unit")
	}
	return nil
}

// inspect checks size, extension and sniffed content type before anything
// is written, and returns a reader that replays the sniffed bytes.
func (s *ReceiptService) inspect(file ReceiptFile) (io.Reader, string, string, error) {
	if file.Content == nil || file.Size <= 0 {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "receipt file is required")
	}
	if file.Size > s.policy.MaxBytes {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("receipt must not exceed %d KB", s.policy.MaxBytes/1024))
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(file.Filename)), ".")
	if !contains(s.policy.AllowedExts, ext) {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "receipt must be a JPG, PNG or WEBP image")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not read receipt file")
	}
	head = head[:n]
	mimeType := http.DetectContentType(head)
	if !contains(s.policy.AllowedMIMEs, mimeType) {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "receipt must be a JPG, PNG or WEBP image")
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	return io.MultiReader(bytes.NewReader(head), file.Content), mimeType, ext, nil
}

func (s *ReceiptService) currentSemester(ctx context.Context) (*models.Semester, error) {
	semester, err := s.semesters.Current(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConfiguration, "no current semester is configured")
		}
		return nil, appErrors.Backend(err, "failed to load current semester")
	}
	return semester, nil
}

func (s *ReceiptService) removeFile(ctx context.Context, key string) {
	if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("failed to remove receipt file", zap.String("key", key), zap.Error(err))
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
