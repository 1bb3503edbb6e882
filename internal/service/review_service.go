package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/mailer"
)

type reviewReceiptRepository interface {
	FindByID(ctx context.Context, id string) (*models.Receipt, error)
	Decide(ctx context.Context, decision models.ReceiptDecision) error
	ListPending(ctx context.Context, semesterID string, unit *models.UnitID) ([]models.ReceiptDetail, error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// ReviewServiceDeps groups the collaborators of ReviewService.
type ReviewServiceDeps struct {
	Receipts      reviewReceiptRepository
	Students      studentLookup
	Fees          feeLookup
	Semesters     currentSemester
	Notifications notificationWriter
	Ledger        *Ledger
	Tx            txRunner
	Store         objectStore
	Audit         auditWriter
	Mailer        mailer.Mailer
	Events        eventEmitter
	Policy        ReviewPolicy
	Metrics       *MetricsService
	Logger        *zap.Logger
}

// ReviewService implements the review gate: decisions on pending receipts,
// the reviewer queue and manual overrides.
type ReviewService struct {
	deps ReviewServiceDeps
	now  func() time.Time
}

// NewReviewService constructs a ReviewService. Mailer and Metrics may be nil.
func NewReviewService(deps ReviewServiceDeps) *ReviewService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ReviewService{deps: deps, now: time.Now}
}

// Decide approves or rejects a pending receipt. The receipt status change is
// guarded on status = 'pending', so a second decision on the same receipt
// fails with ALREADY_DECIDED and the ledger is written once.
func (s *ReviewService) Decide(ctx context.Context, reviewer models.Reviewer, receiptID string, req models.DecideReceiptRequest) (*models.Receipt, error) {
	reason := strings.TrimSpace(req.Reason)
	switch req.Action {
	case models.ReviewActionApprove:
	case models.ReviewActionReject:
		if reason == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject")
	}
	if len(reason) > 500 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason must not exceed 500 characters")
	}

	receipt, err := s.loadReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if !s.deps.Policy.CanReview(reviewer, receipt.UnitID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to review receipts for this unit")
	}
	semester, err := s.deps.Semesters.Current(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Backend(err, "failed to load current semester")
	}
	if semester == nil || semester.ID != receipt.SemesterID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "receipt belongs to a semester that is no longer current")
	}
	if receipt.Status != models.ReceiptStatusPending {
		return nil, appErrors.ErrAlreadyDecided
	}

	fee, err := s.deps.Fees.FindByID(ctx, receipt.FeeID)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to load fee")
	}

	now := s.now().UTC()
	decision := models.ReceiptDecision{
		ReceiptID:  receipt.ID,
		Status:     models.ReceiptStatusApproved,
		ReviewerID: reviewer.UserID,
		ReviewedAt: now,
	}
	trigger := models.TriggerApprove
	if req.Action == models.ReviewActionReject {
		decision.Status = models.ReceiptStatusRejected
		decision.Reason = &reason
		trigger = models.TriggerReject
	}

	var (
		notice  string
		applied bool
	)
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.deps.Receipts.Decide(ctx, decision); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrAlreadyDecided
			}
			return err
		}
		change := LedgerChange{
			StudentID:  receipt.StudentID,
			UnitID:     receipt.UnitID,
			SemesterID: receipt.SemesterID,
			Trigger:    trigger,
			ActorID:    reviewer.UserID,
		}
		if trigger == models.TriggerReject {
			change.Reason = &reason
		}
		ok, err := s.deps.Ledger.Apply(ctx, change)
		if err != nil {
			return err
		}
		applied = ok
		if trigger != models.TriggerReject {
			return nil
		}
		notice = RejectionMessage(fee.Name, receipt.Amount, reason)
		return s.deps.Notifications.Create(ctx, &models.Notification{
			StudentID:     receipt.StudentID,
			Message:       notice,
			Type:          models.NotificationRejection,
			IsDismissable: false,
			CreatedAt:     now,
		})
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Backend(err, "failed to record decision")
	}

	receipt.Status = decision.Status
	receipt.RejectionReason = decision.Reason
	receipt.ReviewedBy = &decision.ReviewerID
	receipt.ReviewedAt = &now

	action := models.AuditActionReceiptApprove
	if trigger == models.TriggerReject {
		action = models.AuditActionReceiptReject
		s.discardFile(ctx, reviewer, receipt)
		s.mailStudent(ctx, receipt.StudentID, notice)
	}
	s.audit(ctx, reviewer, action, "receipt", receipt.ID, receipt)

	unitEvent := models.DomainEvent{Type: models.EventUnitCleared, State: models.StateCleared}
	if trigger == models.TriggerReject {
		unitEvent = models.DomainEvent{Type: models.EventUnitRejected, State: models.StateRejected}
	}
	events := []models.DomainEvent{{Type: models.EventReceiptDecided, State: unitEvent.State}}
	// A skipped ledger write (row reset by rollover) leaves the unit untouched.
	if applied {
		s.deps.Metrics.RecordReceiptDecision(receipt.UnitID, req.Action)
		events = append(events, unitEvent)
	}
	for _, event := range events {
		event.StudentID = receipt.StudentID
		event.UnitID = receipt.UnitID
		event.ReceiptID = receipt.ID
		event.SemesterID = receipt.SemesterID
		s.deps.Events.Emit(ctx, event)
	}
	s.deps.Logger.Info("receipt decided",
		zap.String("receipt_id", receipt.ID),
		zap.String("action", string(req.Action)),
		zap.String("reviewer_id", reviewer.UserID),
		zap.Bool("ledger_applied", applied),
	)
	return receipt, nil
}

// Queue lists pending receipts of the current semester visible to reviewer.
func (s *ReviewService) Queue(ctx context.Context, reviewer models.Reviewer, unit *models.UnitID) ([]models.ReceiptDetail, error) {
	var scope *models.UnitID
	switch {
	case s.deps.Policy.IsSuperReviewer(reviewer):
		scope = unit
	case reviewer.Role == models.RoleStaff && reviewer.Unit != "":
		if unit != nil && *unit != reviewer.Unit {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to review receipts for this unit")
		}
		own := reviewer.Unit
		scope = &own
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reviewer has no unit")
	}

	semester, err := s.deps.Semesters.Current(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.ReceiptDetail{}, nil
		}
		return nil, appErrors.Backend(err, "failed to load current semester")
	}
	receipts, err := s.deps.Receipts.ListPending(ctx, semester.ID, scope)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list pending receipts")
	}
	if receipts == nil {
		receipts = []models.ReceiptDetail{}
	}
	return receipts, nil
}

// Override clears unit for a student without a receipt. Only staff of that
// exact unit may do this.
func (s *ReviewService) Override(ctx context.Context, reviewer models.Reviewer, unit models.UnitID, req models.OverrideRequest) error {
	if strings.TrimSpace(req.StudentID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if !s.deps.Policy.CanOverride(reviewer, unit) {
		return appErrors.Clone(appErrors.ErrForbidden, "only staff of this unit may override its clearance")
	}
	student, err := s.deps.Students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Backend(err, "failed to load student")
	}

	change := LedgerChange{StudentID: student.ID, UnitID: unit, Trigger: models.TriggerOverride, ActorID: reviewer.UserID}
	if semester, err := s.deps.Semesters.Current(ctx); err == nil {
		change.SemesterID = semester.ID
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Backend(err, "failed to load current semester")
	}
	if _, err := s.deps.Ledger.Apply(ctx, change); err != nil {
		return err
	}

	s.audit(ctx, reviewer, models.AuditActionManualOverride, "clearance_status", student.ID+"/"+string(unit), map[string]string{
		"student_id": student.ID,
		"unit_id":    string(unit),
		"note":       strings.TrimSpace(req.Note),
	})
	s.deps.Events.Emit(ctx, models.DomainEvent{
		Type:       models.EventUnitCleared,
		StudentID:  student.ID,
		UnitID:     unit,
		SemesterID: change.SemesterID,
		State:      models.StateCleared,
	})
	return nil
}

func (s *ReviewService) loadReceipt(ctx context.Context, id string) (*models.Receipt, error) {
	receipt, err := s.deps.Receipts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Backend(err, "failed to load receipt")
	}
	return receipt, nil
}

// discardFile removes the image of a rejected receipt. The decision is
// already committed, so failures are logged and audited only.
func (s *ReviewService) discardFile(ctx context.Context, reviewer models.Reviewer, receipt *models.Receipt) {
	err := s.deps.Store.Remove(context.WithoutCancel(ctx), receipt.FilePath)
	if err == nil {
		return
	}
	s.deps.Logger.Error("failed to remove rejected receipt file",
		zap.String("receipt_id", receipt.ID),
		zap.String("key", receipt.FilePath),
		zap.Error(err),
	)
	s.audit(ctx, reviewer, models.AuditActionReceiptOrphan, "receipt", receipt.ID, map[string]string{
		"file_path": receipt.FilePath,
		"error":     err.Error(),
	})
}

func (s *ReviewService) mailStudent(ctx context.Context, studentID, text string) {
	if s.deps.Mailer == nil || text == "" {
		return
	}
	student, err := s.deps.Students.FindByID(ctx, studentID)
	if err != nil || student.Email == "" {
		return
	}
	msg := mailer.Message{
		ToName:  student.Name,
		ToEmail: student.Email,
		Subject: "Receipt rejected",
		Text:    text,
	}
	if err := s.deps.Mailer.Send(context.WithoutCancel(ctx), msg); err != nil {
		s.deps.Logger.Warn("failed to mail rejection notice", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *ReviewService) audit(ctx context.Context, reviewer models.Reviewer, action, resource, resourceID string, values interface{}) {
	if s.deps.Audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource, ResourceID: &resourceID}
	if reviewer.UserID != "" {
		entry.UserID = &reviewer.UserID
	}
	entry.NewValues = marshalAudit(values)
	if err := s.deps.Audit.CreateAuditLog(ctx, entry); err != nil {
		s.deps.Logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

// RejectionMessage renders the notification shown to a student whose
// receipt was rejected.
func RejectionMessage(feeName string, amount int64, reason string) string {
	return fmt.Sprintf("Your receipt for %s (₦%s) has been rejected: %s. Please resubmit with a valid receipt.",
		feeName, formatNaira(amount), strings.TrimRight(reason, ". "))
}

// formatNaira groups thousands with commas: 1250000 -> "1,250,000".
func formatNaira(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

func marshalAudit(values interface{}) []byte {
	if values == nil {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return data
}
