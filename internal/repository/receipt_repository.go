package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

const receiptColumns = `r.id, r.student_id, r.fee_id, r.unit_id, r.semester_id, r.file_path, r.mime_type, r.size_bytes, r.amount,
	r.academic_year, r.semester, r.status, r.rejection_reason, r.reviewed_by, r.reviewed_at, r.uploaded_at`

// ReceiptRepository persists uploaded receipts and their review decisions.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository constructs a ReceiptRepository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create inserts a pending receipt.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	const query = `INSERT INTO receipts (id, student_id, fee_id, unit_id, semester_id, file_path, mime_type, size_bytes, amount, academic_year, semester, status, uploaded_at)
	VALUES (:id, :student_id, :fee_id, :unit_id, :semester_id, :file_path, :mime_type, :size_bytes, :amount, :academic_year, :semester, :status, :uploaded_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, receipt); err != nil {
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

// FindByID returns a receipt by identifier.
func (r *ReceiptRepository) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts r WHERE r.id = $1`
	var receipt models.Receipt
	if err := conn(ctx, r.db).GetContext(ctx, &receipt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find receipt: %w", err)
	}
	return &receipt, nil
}

// FindPending returns the pending receipt a student holds for a fee in a
// semester.
func (r *ReceiptRepository) FindPending(ctx context.Context, studentID, feeID, semesterID string) (*models.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts r WHERE r.student_id = $1 AND r.fee_id = $2 AND r.semester_id = $3 AND r.status = 'pending' FOR UPDATE`
	var receipt models.Receipt
	if err := conn(ctx, r.db).GetContext(ctx, &receipt, query, studentID, feeID, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find pending receipt: %w", err)
	}
	return &receipt, nil
}

// DeletePending removes a receipt only while it is still pending.
func (r *ReceiptRepository) DeletePending(ctx context.Context, id string) error {
	const query = `DELETE FROM receipts WHERE id = $1 AND status = 'pending'`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete pending receipt: %w", err)
	}
	return requireAffected(result, "delete pending receipt")
}

// Decide applies a review decision to a pending receipt. sql.ErrNoRows is
// returned when the receipt does not exist or was already decided.
func (r *ReceiptRepository) Decide(ctx context.Context, decision models.ReceiptDecision) error {
	const query = `UPDATE receipts SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5
	WHERE id = $1 AND status = 'pending'`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, decision.ReceiptID, decision.Status, decision.Reason, decision.ReviewerID, decision.ReviewedAt)
	if err != nil {
		return fmt.Errorf("decide receipt: %w", err)
	}
	return requireAffected(result, "decide receipt")
}

// ListByStudent returns a student's receipts for a semester, newest first.
func (r *ReceiptRepository) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.ReceiptDetail, error) {
	query := `SELECT ` + receiptColumns + `, s.name AS student_name, s.track_no, f.name AS fee_name
	FROM receipts r JOIN students s ON s.id = r.student_id JOIN fees f ON f.id = r.fee_id
	WHERE r.student_id = $1 AND r.semester_id = $2 ORDER BY r.uploaded_at DESC`
	var receipts []models.ReceiptDetail
	if err := conn(ctx, r.db).SelectContext(ctx, &receipts, query, studentID, semesterID); err != nil {
		return nil, fmt.Errorf("list student receipts: %w", err)
	}
	return receipts, nil
}

// ListPending returns the review queue of the current semester, oldest
// first. A nil unit lists every unit.
func (r *ReceiptRepository) ListPending(ctx context.Context, semesterID string, unit *models.UnitID) ([]models.ReceiptDetail, error) {
	query := `SELECT ` + receiptColumns + `, s.name AS student_name, s.track_no, f.name AS fee_name
	FROM receipts r JOIN students s ON s.id = r.student_id JOIN fees f ON f.id = r.fee_id
	WHERE r.status = 'pending' AND r.semester_id = $1`
	args := []interface{}{semesterID}
	if unit != nil {
		query += ` AND r.unit_id = $2`
		args = append(args, *unit)
	}
	query += ` ORDER BY r.uploaded_at ASC`

	var receipts []models.ReceiptDetail
	if err := conn(ctx, r.db).SelectContext(ctx, &receipts, query, args...); err != nil {
		return nil, fmt.Errorf("list pending receipts: %w", err)
	}
	return receipts, nil
}
