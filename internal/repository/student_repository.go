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

const studentColumns = "id, user_id, name, track_no, email, department, created_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(track_no) LIKE $%d)", len(args), len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d", studentColumns, where, size, offset)
	var students []models.Student
	if err := conn(ctx, r.db).SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "id", id)
}

// FindByUserID returns the student linked to a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	return r.findOne(ctx, "user_id", userID)
}

// FindByTrackNo returns a student by institutional track number.
func (r *StudentRepository) FindByTrackNo(ctx context.Context, trackNo string) (*models.Student, error) {
	return r.findOne(ctx, "track_no", strings.TrimSpace(trackNo))
}

func (r *StudentRepository) findOne(ctx context.Context, column, value string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s = $1", studentColumns, column)
	var student models.Student
	if err := conn(ctx, r.db).GetContext(ctx, &student, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return &student, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, user_id, name, track_no, email, department, created_at)
	VALUES (:id, :user_id, :name, :track_no, :email, :department, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// TrackNoExists reports whether a student already uses trackNo.
func (r *StudentRepository) TrackNoExists(ctx context.Context, trackNo string) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM students WHERE track_no = $1)`, trackNo); err != nil {
		return false, fmt.Errorf("check track number: %w", err)
	}
	return exists, nil
}

// DeleteByUserID removes the student linked to userID. Missing rows are ignored.
func (r *StudentRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM students WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
