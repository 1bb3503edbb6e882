package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/export"
)

type unitLister interface {
	List(ctx context.Context) ([]models.Unit, error)
}

type clearanceReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ClearanceStatus, error)
	ListByUnit(ctx context.Context, unitID models.UnitID, status *models.ClearanceState) ([]models.UnitLedgerEntry, error)
}

type feeLister interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindByTrackNo(ctx context.Context, trackNo string) (*models.Student, error)
}

// ClearanceServiceDeps groups the collaborators of ClearanceService.
type ClearanceServiceDeps struct {
	Units         unitLister
	Ledger        clearanceReader
	Fees          feeLister
	Students      studentFinder
	Semesters     currentSemester
	SlipSigner    urlSigner
	Exporter      *export.CSVExporter
	SlipRenderer  *export.PDFExporter
	Policy        ReviewPolicy
	ExcludedUnits []string
	Logger        *zap.Logger
}

// ClearanceService aggregates the ledger into progress reports, unit
// dashboards and clearance slips. Nothing here is cached.
type ClearanceService struct {
	deps     ClearanceServiceDeps
	excluded map[models.UnitID]struct{}
	now      func() time.Time
}

// NewClearanceService constructs a ClearanceService.
func NewClearanceService(deps ClearanceServiceDeps) *ClearanceService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewCSVExporter(true)
	}
	if deps.SlipRenderer == nil {
		deps.SlipRenderer = export.NewPDFExporter()
	}
	excluded := make(map[models.UnitID]struct{}, len(deps.ExcludedUnits))
	for _, u := range deps.ExcludedUnits {
		if u = strings.TrimSpace(u); u != "" {
			excluded[models.UnitID(u)] = struct{}{}
		}
	}
	return &ClearanceService{deps: deps, excluded: excluded, now: time.Now}
}

// ComputeProgress derives the clearance position of student from the ledger.
func (s *ClearanceService) ComputeProgress(ctx context.Context, student *models.Student) (*models.Progress, error) {
	units, err := s.deps.Units.List(ctx)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list units")
	}
	rows, err := s.deps.Ledger.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to load clearance ledger")
	}
	fees, err := s.deps.Fees.List(ctx, models.FeeFilter{})
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list fees")
	}

	byUnit := make(map[models.UnitID]*models.ClearanceStatus, len(rows))
	for i := range rows {
		byUnit[rows[i].UnitID] = &rows[i]
	}
	owedByUnit := make(map[models.UnitID]int64)
	for _, fee := range fees {
		if fee.AppliesTo(student.Department) {
			owedByUnit[fee.UnitID] += fee.Amount
		}
	}

	progress := &models.Progress{
		StudentID:  student.ID,
		Units:      make([]models.UnitClearance, 0, len(units)),
		ComputedAt: s.now().UTC(),
	}
	for _, unit := range units {
		status := models.EffectiveStatus(byUnit[unit.ID], student.ID, unit.ID)
		line := models.UnitClearance{
			UnitID:   unit.ID,
			UnitName: unit.Name,
			Status:   status.Status,
			Excluded: s.isExcluded(unit),
		}
		if byUnit[unit.ID] != nil {
			updated := status.UpdatedAt
			line.UpdatedAt = &updated
		}
		if status.Status == models.StateRejected {
			line.RejectionReason = status.RejectionReason
		}
		if !line.Excluded {
			progress.TotalCount++
			if status.Status == models.StateCleared {
				progress.ClearedCount++
			} else {
				line.AmountOwed = owedByUnit[unit.ID]
				progress.AmountOwedTotal += line.AmountOwed
			}
		}
		progress.Units = append(progress.Units, line)
	}

	if progress.TotalCount > 0 {
		pct := float64(progress.ClearedCount) / float64(progress.TotalCount) * 100
		progress.Percentage = math.Round(pct*100) / 100
	}
	progress.IsFullyCleared = progress.TotalCount > 0 && progress.ClearedCount == progress.TotalCount
	return progress, nil
}

// Me returns the progress of the student linked to userID.
func (s *ClearanceService) Me(ctx context.Context, userID string) (*models.StudentClearance, error) {
	student, err := s.deps.Students.FindByUserID(ctx, userID)
	return s.withProgress(ctx, student, err)
}

// Lookup finds a student by track number for verification desks.
func (s *ClearanceService) Lookup(ctx context.Context, trackNo string) (*models.StudentClearance, error) {
	trackNo = strings.TrimSpace(trackNo)
	if trackNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "trackNo is required")
	}
	student, err := s.deps.Students.FindByTrackNo(ctx, trackNo)
	return s.withProgress(ctx, student, err)
}

// StudentProgress returns the progress of a student by id.
func (s *ClearanceService) StudentProgress(ctx context.Context, studentID string) (*models.StudentClearance, error) {
	student, err := s.deps.Students.FindByID(ctx, studentID)
	return s.withProgress(ctx, student, err)
}

func (s *ClearanceService) withProgress(ctx context.Context, student *models.Student, err error) (*models.StudentClearance, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Backend(err, "failed to load student")
	}
	progress, err := s.ComputeProgress(ctx, student)
	if err != nil {
		return nil, err
	}
	return &models.StudentClearance{Student: student, Progress: progress}, nil
}

// UnitLedger lists every student's effective state for unit.
func (s *ClearanceService) UnitLedger(ctx context.Context, reviewer models.Reviewer, unit models.UnitID, status *models.ClearanceState) ([]models.UnitLedgerEntry, error) {
	if !s.deps.Policy.CanReview(reviewer, unit) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this unit")
	}
	entries, err := s.deps.Ledger.ListByUnit(ctx, unit, status)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list unit ledger")
	}
	if entries == nil {
		entries = []models.UnitLedgerEntry{}
	}
	return entries, nil
}

var unitLedgerColumns = []export.Column{
	{Key: "track_no", Header: "Track No"},
	{Key: "student_name", Header: "Student"},
	{Key: "department", Header: "Department"},
	{Key: "status", Header: "Status"},
	{Key: "rejection_reason", Header: "Rejection Reason"},
	{Key: "updated_at", Header: "Updated At"},
}

// ExportUnitLedger writes the unit ledger as CSV to w.
func (s *ClearanceService) ExportUnitLedger(ctx context.Context, w io.Writer, reviewer models.Reviewer, unit models.UnitID, status *models.ClearanceState) error {
	entries, err := s.UnitLedger(ctx, reviewer, unit, status)
	if err != nil {
		return err
	}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		row := map[string]string{
			"track_no":     e.TrackNo,
			"student_name": e.StudentName,
			"status":       string(e.Status),
		}
		if e.Department != nil {
			row["department"] = *e.Department
		}
		if e.RejectionReason != nil {
			row["rejection_reason"] = *e.RejectionReason
		}
		if e.UpdatedAt != nil {
			row["updated_at"] = e.UpdatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	if err := s.deps.Exporter.Write(w, export.Table{Columns: unitLedgerColumns, Rows: rows}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return nil
}

// ExportContentType is the MIME type of ExportUnitLedger output.
func (s *ClearanceService) ExportContentType() string {
	return s.deps.Exporter.ContentType()
}

type slipClaims struct {
	IssuedAt   time.Time `json:"iat"`
	SemesterID string    `json:"sem,omitempty"`
}

// Slip issues a clearance slip for the student linked to userID. It fails
// with PRECONDITION_FAILED until every counted unit is cleared.
func (s *ClearanceService) Slip(ctx context.Context, userID string) (*models.ClearanceSlip, error) {
	result, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !result.Progress.IsFullyCleared {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "all units must be cleared before a slip can be issued")
	}

	slip := s.buildSlip(ctx, result)
	payload, err := json.Marshal(slipClaims{IssuedAt: slip.IssuedAt, SemesterID: slip.semesterID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode slip")
	}
	token, expiresAt, err := s.deps.SlipSigner.Generate(result.Student.ID, string(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to sign slip")
	}
	slip.VerificationToken = token
	slip.ExpiresAt = &expiresAt
	s.deps.Logger.Info("clearance slip issued", zap.String("student_id", result.Student.ID))
	return &slip.ClearanceSlip, nil
}

// SlipPDF issues a slip like Slip and renders it as a printable PDF. The
// verification token is printed in the footer.
func (s *ClearanceService) SlipPDF(ctx context.Context, userID string) ([]byte, *models.ClearanceSlip, error) {
	slip, err := s.Slip(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	details := []export.Detail{
		{Label: "Name", Value: strings.ToUpper(slip.StudentName)},
		{Label: "Track No", Value: slip.TrackNo},
	}
	if slip.Department != nil && *slip.Department != "" {
		details = append(details, export.Detail{Label: "Department", Value: *slip.Department})
	}
	if slip.Session != "" {
		details = append(details, export.Detail{Label: "Session", Value: fmt.Sprintf("%s (%s semester)", slip.Session, slip.Semester)})
	}
	details = append(details, export.Detail{Label: "Date", Value: slip.IssuedAt.Format("02 Jan 2006")})

	rows := make([]map[string]string, 0, len(slip.Units))
	for _, line := range slip.Units {
		cleared := slip.IssuedAt
		if line.UpdatedAt != nil {
			cleared = *line.UpdatedAt
		}
		rows = append(rows, map[string]string{
			"unit":    line.UnitName,
			"status":  "CLEARED",
			"cleared": cleared.Format("02 Jan 2006"),
		})
	}
	doc := export.Document{
		Title:    "Arthur Jarvis University",
		Subtitle: "Student Clearance Slip",
		Details:  details,
		Table: export.Table{
			Columns: []export.Column{
				{Key: "unit", Header: "Unit / Department"},
				{Key: "status", Header: "Status"},
				{Key: "cleared", Header: "Date Cleared"},
			},
			Rows: rows,
		},
		Footer: []string{"Verification token: " + slip.VerificationToken},
	}
	if slip.ExpiresAt != nil {
		doc.Footer = append(doc.Footer, "Valid until "+slip.ExpiresAt.Format(time.RFC1123))
	}
	out, err := s.deps.SlipRenderer.Render(doc)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render slip")
	}
	return out, slip, nil
}

// VerifySlip checks a slip token and reports the student's current state.
func (s *ClearanceService) VerifySlip(ctx context.Context, token string) (*models.SlipVerification, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	studentID, payload, expiresAt, err := s.deps.SlipSigner.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired slip")
	}
	var claims slipClaims
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid slip payload")
	}
	result, err := s.StudentProgress(ctx, studentID)
	if err != nil {
		return nil, err
	}
	slip := s.buildSlip(ctx, result)
	slip.IssuedAt = claims.IssuedAt
	slip.ExpiresAt = &expiresAt
	return &models.SlipVerification{
		Slip:         slip.ClearanceSlip,
		StillCleared: result.Progress.IsFullyCleared && (claims.SemesterID == "" || claims.SemesterID == slip.semesterID),
		ExpiresAt:    expiresAt,
	}, nil
}

type builtSlip struct {
	models.ClearanceSlip
	semesterID string
}

func (s *ClearanceService) buildSlip(ctx context.Context, result *models.StudentClearance) builtSlip {
	slip := builtSlip{ClearanceSlip: models.ClearanceSlip{
		StudentID:   result.Student.ID,
		StudentName: result.Student.Name,
		TrackNo:     result.Student.TrackNo,
		Department:  result.Student.Department,
		IssuedAt:    s.now().UTC().Truncate(time.Second),
	}}
	for _, line := range result.Progress.Units {
		if !line.Excluded {
			slip.Units = append(slip.Units, line)
		}
	}
	if semester, err := s.deps.Semesters.Current(ctx); err == nil {
		slip.Session = semester.Session
		slip.Semester = semester.Semester
		slip.semesterID = semester.ID
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.deps.Logger.Warn("failed to load current semester for slip", zap.Error(err))
	}
	return slip
}

func (s *ClearanceService) isExcluded(unit models.Unit) bool {
	if unit.ExcludedFromSlip {
		return true
	}
	_, ok := s.excluded[unit.ID]
	return ok
}
