package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

var receiptCols = []string{"id", "student_id", "fee_id", "unit_id", "semester_id", "file_path", "mime_type", "size_bytes", "amount",
	"academic_year", "semester", "status", "rejection_reason", "reviewed_by", "reviewed_at", "uploaded_at"}

func TestReceiptRepositoryDecidePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE receipts SET status = $2")).
		WithArgs("r1", models.ReceiptStatusApproved, nil, "rev1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Decide(context.Background(), models.ReceiptDecision{ReceiptID: "r1", Status: models.ReceiptStatusApproved, ReviewerID: "rev1", ReviewedAt: now})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryDecideAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	reason := "blurry"
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), models.ReceiptDecision{ReceiptID: "r1", Status: models.ReceiptStatusRejected, Reason: &reason, ReviewerID: "rev1", ReviewedAt: time.Now()})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryListPendingForUnit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	now := time.Now()
	cols := append(append([]string{}, receiptCols...), "student_name", "track_no", "fee_name")
	rows := sqlmock.NewRows(cols).AddRow("r1", "s1", "f1", "library", "sem1", "receipts/s1-f1-1.png", "image/png", 2048, 2000,
		2, "first", "pending", nil, nil, nil, now, "Ada Obi", "AJU/2020/001", "Library Fee")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = 'pending' AND r.semester_id = $1 AND r.unit_id = $2 ORDER BY r.uploaded_at ASC")).
		WithArgs("sem1", models.UnitLibrary).
		WillReturnRows(rows)

	unit := models.UnitLibrary
	receipts, err := repo.ListPending(context.Background(), "sem1", &unit)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "Library Fee", receipts[0].FeeName)
	assert.Equal(t, models.ReceiptStatusPending, receipts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptRepositoryFindPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReceiptRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND r.status = 'pending' FOR UPDATE")).
		WithArgs("s1", "f1", "sem1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPending(context.Background(), "s1", "f1", "sem1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
