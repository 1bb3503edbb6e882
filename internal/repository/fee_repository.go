package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

const feeColumns = "id, name, amount, unit_id, department, account_number, description, created_at, updated_at"

// FeeRepository manages the fee catalog.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// List returns catalog entries matching filter. A department filter keeps
// institution-wide fees as well as the department's own.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.Fee, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.UnitID != nil {
		args = append(args, *filter.UnitID)
		conditions = append(conditions, fmt.Sprintf("unit_id = $%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		conditions = append(conditions, fmt.Sprintf("(department IS NULL OR department = $%d)", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM fees WHERE %s ORDER BY unit_id ASC, name ASC", feeColumns, strings.Join(conditions, " AND "))
	var fees []models.Fee
	if err := conn(ctx, r.db).SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	return fees, nil
}

// FindByID returns a fee by identifier.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	query := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1", feeColumns)
	var fee models.Fee
	if err := conn(ctx, r.db).GetContext(ctx, &fee, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find fee: %w", err)
	}
	return &fee, nil
}

// Create inserts a catalog entry.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fee.CreatedAt = now
	fee.UpdatedAt = now
	const query = `INSERT INTO fees (id, name, amount, unit_id, department, account_number, description, created_at, updated_at)
	VALUES (:id, :name, :amount, :unit_id, :department, :account_number, :description, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a catalog entry.
func (r *FeeRepository) Update(ctx context.Context, fee *models.Fee) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fees SET name = :name, amount = :amount, unit_id = :unit_id, department = :department,
	account_number = :account_number, description = :description, updated_at = :updated_at WHERE id = :id`
	result, err := conn(ctx, r.db).NamedExecContext(ctx, query, fee)
	if err != nil {
		return fmt.Errorf("update fee: %w", err)
	}
	return requireAffected(result, "update fee")
}

// Delete removes a catalog entry.
func (r *FeeRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	return requireAffected(result, "delete fee")
}

// CountReceipts returns how many receipts reference the fee.
func (r *FeeRepository) CountReceipts(ctx context.Context, id string) (int, error) {
	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM receipts WHERE fee_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count fee receipts: %w", err)
	}
	return count, nil
}
