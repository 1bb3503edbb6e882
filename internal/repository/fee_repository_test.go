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

var feeCols = []string{"id", "name", "amount", "unit_id", "department", "account_number", "description", "created_at", "updated_at"}

func TestFeeRepositoryListByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(feeCols).
		AddRow("f1", "School Fees", 150000, "bursary", nil, "1027335816", nil, now, now).
		AddRow("f2", "Departmental Dues", 5000, "department", "Computer Science", "1027335816", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM fees WHERE 1=1 AND (department IS NULL OR department = $1)")).
		WithArgs("Computer Science").
		WillReturnRows(rows)

	dept := "Computer Science"
	fees, err := repo.List(context.Background(), models.FeeFilter{Department: &dept})
	require.NoError(t, err)
	require.Len(t, fees, 2)
	assert.Equal(t, int64(150000), fees[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fees SET name = ")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Fee{ID: "f9", Name: "Library", Amount: 2000, UnitID: models.UnitLibrary})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCountReceipts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM receipts WHERE fee_id = $1")).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountReceipts(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
