package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUnitOfWorkCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uow := NewUnitOfWork(db)
	err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := conn(ctx, db).ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", "n1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("stop")
	err := NewUnitOfWork(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkNestedJoinsOuter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	uow := NewUnitOfWork(db)
	err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return uow.WithinTx(ctx, func(inner context.Context) error {
			require.Equal(t, conn(ctx, db), conn(inner, db))
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
