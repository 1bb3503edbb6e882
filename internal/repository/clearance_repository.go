package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

const clearanceColumns = "id, student_id, unit_id, semester_id, status, rejection_reason, updated_by, updated_at"

// ClearanceRepository stores the per-student, per-unit clearance ledger.
// A missing row is the implicit submit_receipt state.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository constructs a ClearanceRepository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// ListByStudent returns the persisted ledger rows of a student.
func (r *ClearanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ClearanceStatus, error) {
	query := fmt.Sprintf("SELECT %s FROM clearance_status WHERE student_id = $1", clearanceColumns)
	var rows []models.ClearanceStatus
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student clearance: %w", err)
	}
	return rows, nil
}

// Find returns the ledger row for (studentID, unitID).
func (r *ClearanceRepository) Find(ctx context.Context, studentID string, unitID models.UnitID) (*models.ClearanceStatus, error) {
	query := fmt.Sprintf("SELECT %s FROM clearance_status WHERE student_id = $1 AND unit_id = $2", clearanceColumns)
	var row models.ClearanceStatus
	if err := conn(ctx, r.db).GetContext(ctx, &row, query, studentID, unitID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find clearance: %w", err)
	}
	return &row, nil
}

// ListByUnit returns the effective state of every student for a unit,
// including students without a ledger row. A nil status lists all states.
func (r *ClearanceRepository) ListByUnit(ctx context.Context, unitID models.UnitID, status *models.ClearanceState) ([]models.UnitLedgerEntry, error) {
	query := `SELECT s.id AS student_id, s.name AS student_name, s.track_no, s.department, $1::text AS unit_id,
	COALESCE(cs.status, 'submit_receipt') AS status, cs.rejection_reason, cs.updated_at
	FROM students s LEFT JOIN clearance_status cs ON cs.student_id = s.id AND cs.unit_id = $1`
	args := []interface{}{unitID}
	if status != nil {
		query += ` WHERE COALESCE(cs.status, 'submit_receipt') = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY s.name ASC`

	var entries []models.UnitLedgerEntry
	if err := conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list unit clearance: %w", err)
	}
	return entries, nil
}

// Transition writes row when the current state is one of allowedFrom and
// reports whether the write happened. When allowedFrom contains
// submit_receipt a missing row is created.
func (r *ClearanceRepository) Transition(ctx context.Context, row *models.ClearanceStatus, allowedFrom []models.ClearanceState) (bool, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	from := make([]string, 0, len(allowedFrom))
	upsert := false
	for _, state := range allowedFrom {
		from = append(from, string(state))
		if state == models.StateSubmitReceipt {
			upsert = true
		}
	}

	var (
		result sql.Result
		err    error
	)
	if upsert {
		const query = `INSERT INTO clearance_status (id, student_id, unit_id, semester_id, status, rejection_reason, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, unit_id) DO UPDATE SET status = EXCLUDED.status, rejection_reason = EXCLUDED.rejection_reason,
		updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at, semester_id = EXCLUDED.semester_id
		WHERE clearance_status.status = ANY($9)`
		result, err = conn(ctx, r.db).ExecContext(ctx, query, row.ID, row.StudentID, row.UnitID, row.SemesterID, row.Status,
			row.RejectionReason, row.UpdatedBy, row.UpdatedAt, pq.Array(from))
	} else {
		const query = `UPDATE clearance_status SET status = $3, rejection_reason = $4, updated_by = $5, updated_at = $6, semester_id = COALESCE($7, semester_id)
		WHERE student_id = $1 AND unit_id = $2 AND status = ANY($8)`
		result, err = conn(ctx, r.db).ExecContext(ctx, query, row.StudentID, row.UnitID, row.Status, row.RejectionReason,
			row.UpdatedBy, row.UpdatedAt, row.SemesterID, pq.Array(from))
	}
	if err != nil {
		return false, fmt.Errorf("transition clearance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition clearance rows affected: %w", err)
	}
	return affected > 0, nil
}

// ArchiveAll copies every ledger row into the archive. Rows without a
// semester are attributed to fallbackSemesterID.
func (r *ClearanceRepository) ArchiveAll(ctx context.Context, fallbackSemesterID *string, archivedAt time.Time) (int64, error) {
	const query = `INSERT INTO clearance_status_archive (semester_id, student_id, unit_id, status, rejection_reason, updated_at, archived_at)
	SELECT COALESCE(semester_id, $1), student_id, unit_id, status, rejection_reason, updated_at, $2 FROM clearance_status`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, fallbackSemesterID, archivedAt)
	if err != nil {
		return 0, fmt.Errorf("archive clearance: %w", err)
	}
	return result.RowsAffected()
}

// ResetAll returns every ledger row to submit_receipt for semesterID.
func (r *ClearanceRepository) ResetAll(ctx context.Context, semesterID string, resetAt time.Time) (int64, error) {
	const query = `UPDATE clearance_status SET status = 'submit_receipt', rejection_reason = NULL, updated_by = NULL, updated_at = $2, semester_id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, semesterID, resetAt)
	if err != nil {
		return 0, fmt.Errorf("reset clearance: %w", err)
	}
	return result.RowsAffected()
}
