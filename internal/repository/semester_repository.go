package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// SemesterRepository manages academic semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// Current returns the semester flagged current.
func (r *SemesterRepository) Current(ctx context.Context) (*models.Semester, error) {
	const query = `SELECT id, session, semester, is_current, created_at FROM semesters WHERE is_current = TRUE LIMIT 1`
	var semester models.Semester
	if err := conn(ctx, r.db).GetContext(ctx, &semester, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find current semester: %w", err)
	}
	return &semester, nil
}

// List returns every semester, newest first.
func (r *SemesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	const query = `SELECT id, session, semester, is_current, created_at FROM semesters ORDER BY created_at DESC`
	var semesters []models.Semester
	if err := conn(ctx, r.db).SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// Exists reports whether session/semester has already been opened.
func (r *SemesterRepository) Exists(ctx context.Context, session string, label models.SemesterLabel) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM semesters WHERE session = $1 AND semester = $2)`
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, session, label); err != nil {
		return false, fmt.Errorf("check semester exists: %w", err)
	}
	return exists, nil
}

// UnsetCurrent clears the current flag.
func (r *SemesterRepository) UnsetCurrent(ctx context.Context) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE semesters SET is_current = FALSE WHERE is_current = TRUE`); err != nil {
		return fmt.Errorf("unset current semester: %w", err)
	}
	return nil
}

// Create inserts a semester.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO semesters (id, session, semester, is_current, created_at) VALUES (:id, :session, :semester, :is_current, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}
