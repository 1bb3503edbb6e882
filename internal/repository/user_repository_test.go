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

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "active", "last_login_at", "created_at", "updated_at", "full_name", "role", "unit"}).
		AddRow("u1", "bursar@aju.edu.ng", "hash", true, nil, now, now, "Bursar", "staff", "bursary")
	mock.ExpectQuery(`FROM users u LEFT JOIN profiles p ON p.user_id = u.id WHERE LOWER\(u.email\) = LOWER\(\$1\)`).
		WithArgs("bursar@aju.edu.ng").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "bursar@aju.edu.ng")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)
	require.NotNil(t, user.Unit)
	assert.Equal(t, models.UnitBursary, *user.Unit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`WHERE u.id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAndProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "new@aju.edu.ng", PasswordHash: "hash", Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)

	err := repo.CreateProfile(context.Background(), &models.Profile{UserID: user.ID, Name: "New", Email: user.Email, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListProfiles(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "name", "email", "role", "unit", "staff_id", "track_no", "department", "created_at"}).
		AddRow("u2", "Ada", "ada@aju.edu.ng", "student", nil, nil, "AJU/2020/001", "Computer Science", now).
		AddRow("u1", "Admin", "admin@aju.edu.ng", "admin", nil, nil, nil, nil, now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles ORDER BY created_at DESC")).WillReturnRows(rows)

	profiles, err := repo.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "u2", profiles[0].UserID)
	require.NotNil(t, profiles[0].TrackNo)
	assert.Nil(t, profiles[1].Unit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{UserID: "u1", Token: "token", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
