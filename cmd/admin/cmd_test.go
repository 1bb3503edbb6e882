package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

type stubCreator struct {
	req models.CreateUserRequest
	err error
}

func (s *stubCreator) Create(ctx context.Context, actor models.Reviewer, req models.CreateUserRequest, meta models.LoginRequest) (string, error) {
	s.req = req
	if s.err != nil {
		return "", s.err
	}
	return "user-1", nil
}

type stubAccounts struct {
	users   map[string]*models.User
	hash    string
	revoked string
}

func (s *stubAccounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAccounts) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.hash = passwordHash
	return nil
}

func (s *stubAccounts) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revoked = userID
	return nil
}

func setup(t *testing.T, password string) (*commandLine, *stubCreator, *stubAccounts) {
	t.Helper()
	original := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPasswordFunc = original })

	creator := &stubCreator{}
	accounts := &stubAccounts{users: map[string]*models.User{
		"bursar@aju.edu.ng": {ID: "u-bursar", Email: "bursar@aju.edu.ng"},
	}}
	return &commandLine{accounts: accounts, users: creator, out: &bytes.Buffer{}}, creator, accounts
}

func TestRunUsage(t *testing.T) {
	cli, _, _ := setup(t, "secret1")
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"lol"}},
		{"migrate without command", []string{"migrate"}},
		{"adduser without email", []string{"adduser", "-name", "Ada"}},
		{"resetpassword without email", []string{"resetpassword"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			assert.ErrorIs(t, err, errHelp)
		})
	}
}

func TestRunMigrate(t *testing.T) {
	cli, _, _ := setup(t, "")
	var gotCommand string
	var gotArgs []string
	original := migrateFunc
	t.Cleanup(func() { migrateFunc = original })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}

	require.NoError(t, cli.run([]string{"admin", "migrate", "up-to", "2"}))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, []string{"2"}, gotArgs)
}

func TestRunAddUser(t *testing.T) {
	cli, creator, _ := setup(t, "secret1")

	err := cli.run([]string{"admin", "adduser", "-email", "lib@aju.edu.ng", "-name", "Librarian", "-role", "staff", "-unit", "library"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, creator.req.Role)
	assert.Equal(t, "secret1", creator.req.Password)
	require.NotNil(t, creator.req.Unit)
	assert.Equal(t, models.UnitLibrary, *creator.req.Unit)
	assert.Nil(t, creator.req.TrackNo)

	creator.err = errors.New("duplicate")
	err = cli.run([]string{"admin", "adduser", "-email", "lib@aju.edu.ng", "-name", "Librarian"})
	assert.EqualError(t, err, "duplicate")
}

func TestRunAddUserEmptyPassword(t *testing.T) {
	cli, _, _ := setup(t, "")
	err := cli.run([]string{"admin", "adduser", "-email", "a@aju.edu.ng", "-name", "A"})
	assert.ErrorIs(t, err, errHelp)
}

func TestRunResetPassword(t *testing.T) {
	cli, _, accounts := setup(t, "n3wpassword")

	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-email", "Bursar@aju.edu.ng"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts.hash), []byte("n3wpassword")))
	assert.Equal(t, "u-bursar", accounts.revoked)

	err := cli.run([]string{"admin", "resetpassword", "-email", "nobody@aju.edu.ng"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResetPasswordTooShort(t *testing.T) {
	cli, _, _ := setup(t, "abc")
	err := cli.run([]string{"admin", "resetpassword", "-email", "bursar@aju.edu.ng"})
	assert.ErrorContains(t, err, "at least 6")
}
