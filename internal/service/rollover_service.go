package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

var sessionPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

type semesterRepository interface {
	Current(ctx context.Context) (*models.Semester, error)
	List(ctx context.Context) ([]models.Semester, error)
	Exists(ctx context.Context, session string, label models.SemesterLabel) (bool, error)
	UnsetCurrent(ctx context.Context) error
	Create(ctx context.Context, semester *models.Semester) error
}

type ledgerArchiver interface {
	ArchiveAll(ctx context.Context, fallbackSemesterID *string, archivedAt time.Time) (int64, error)
	ResetAll(ctx context.Context, semesterID string, resetAt time.Time) (int64, error)
}

// RolloverService manages semesters and the start-of-semester ledger reset.
type RolloverService struct {
	semesters semesterRepository
	ledger    ledgerArchiver
	tx        txRunner
	audit     auditWriter
	events    eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRolloverService constructs a RolloverService.
func NewRolloverService(semesters semesterRepository, ledger ledgerArchiver, tx txRunner, audit auditWriter, events eventEmitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RolloverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RolloverService{
		semesters: semesters,
		ledger:    ledger,
		tx:        tx,
		audit:     audit,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Current returns the active semester.
func (s *RolloverService) Current(ctx context.Context) (*models.Semester, error) {
	semester, err := s.semesters.Current(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current semester is configured")
		}
		return nil, appErrors.Backend(err, "failed to load current semester")
	}
	return semester, nil
}

// List returns every semester, newest first.
func (s *RolloverService) List(ctx context.Context) ([]models.Semester, error) {
	semesters, err := s.semesters.List(ctx)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list semesters")
	}
	if semesters == nil {
		semesters = []models.Semester{}
	}
	return semesters, nil
}

// StartNewSemester archives the ledger, opens a new current semester and
// resets every unit to submit_receipt, all in one transaction.
func (s *RolloverService) StartNewSemester(ctx context.Context, actor models.Reviewer, req models.RolloverRequest) (*models.RolloverResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can start a new semester")
	}
	req.Session = strings.TrimSpace(req.Session)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rollover payload")
	}
	if err := ValidateSession(req.Session); err != nil {
		return nil, err
	}
	if !req.Confirm {
		return nil, appErrors.Clone(appErrors.ErrValidation, "confirm must be true to start a new semester")
	}

	exists, err := s.semesters.Exists(ctx, req.Session, req.Semester)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to check semester")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, req.Session+" "+string(req.Semester)+" semester already exists")
	}

	now := s.now().UTC()
	result := &models.RolloverResult{RolledOverAt: now}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		previous, err := s.semesters.Current(ctx)
		switch {
		case err == nil:
			result.PreviousID = &previous.ID
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		if result.ArchivedRows, err = s.ledger.ArchiveAll(ctx, result.PreviousID, now); err != nil {
			return err
		}
		if err := s.semesters.UnsetCurrent(ctx); err != nil {
			return err
		}
		semester := &models.Semester{Session: req.Session, Semester: req.Semester, IsCurrent: true, CreatedAt: now}
		if err := s.semesters.Create(ctx, semester); err != nil {
			return err
		}
		result.Semester = semester
		result.ResetRows, err = s.ledger.ResetAll(ctx, semester.ID, now)
		return err
	})
	if err != nil {
		return nil, appErrors.Backend(err, "failed to start new semester")
	}

	s.metrics.RecordRollover()
	if s.audit != nil {
		id := result.Semester.ID
		entry := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionRollover,
			Resource:   "semester",
			ResourceID: &id,
			NewValues:  marshalAudit(result),
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record rollover audit log", zap.Error(err))
		}
	}
	s.events.Emit(ctx, models.DomainEvent{Type: models.EventSemesterRolledOver, SemesterID: result.Semester.ID})
	s.logger.Info("semester rolled over",
		zap.String("session", req.Session),
		zap.String("semester", string(req.Semester)),
		zap.Int64("archived_rows", result.ArchivedRows),
		zap.Int64("reset_rows", result.ResetRows),
	)
	return result, nil
}

// ValidateSession checks the YYYY/YYYY format with consecutive years.
func ValidateSession(session string) error {
	match := sessionPattern.FindStringSubmatch(session)
	if match == nil {
		return appErrors.Clone(appErrors.ErrValidation, "session must look like 2024/2025")
	}
	start, _ := strconv.Atoi(match[1])
	end, _ := strconv.Atoi(match[2])
	if end != start+1 {
		return appErrors.Clone(appErrors.ErrValidation, "session years must be consecutive")
	}
	return nil
}
