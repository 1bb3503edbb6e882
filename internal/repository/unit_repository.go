package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// UnitRepository reads the administrative units that clear students.
type UnitRepository struct {
	db *sqlx.DB
}

// NewUnitRepository constructs a UnitRepository.
func NewUnitRepository(db *sqlx.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

// List returns all units in display order.
func (r *UnitRepository) List(ctx context.Context) ([]models.Unit, error) {
	const query = `SELECT id, name, excluded_from_slip, sort_order FROM units ORDER BY sort_order ASC, id ASC`
	var units []models.Unit
	if err := conn(ctx, r.db).SelectContext(ctx, &units, query); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// FindByID returns a unit by identifier.
func (r *UnitRepository) FindByID(ctx context.Context, id models.UnitID) (*models.Unit, error) {
	const query = `SELECT id, name, excluded_from_slip, sort_order FROM units WHERE id = $1`
	var unit models.Unit
	if err := conn(ctx, r.db).GetContext(ctx, &unit, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find unit: %w", err)
	}
	return &unit, nil
}
