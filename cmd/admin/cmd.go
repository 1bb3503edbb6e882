package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/database"
)

var (
	readPasswordFunc = term.ReadPassword
	migrateFunc      = database.Migrate

	errHelp = errors.New("help provided")
)

// cliActor is recorded as the actor of accounts created from the terminal.
var cliActor = models.Reviewer{UserID: "admin-cli", Role: models.RoleAdmin}

type userCreator interface {
	Create(ctx context.Context, actor models.Reviewer, req models.CreateUserRequest, meta models.LoginRequest) (string, error)
}

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

type commandLine struct {
	db       *sql.DB
	accounts accountStore
	users    userCreator
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run goose (up, down, status, version, redo, reset, up-to, down-to)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role ROLE       - create an account; the password is prompted")
	fmt.Fprintln(cli.out, "          [-unit UNIT] [-trackno TRACK_NO] [-department DEPT]")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                       - set a new password and revoke sessions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "Login e-mail")
	addUserName := addUserCmd.String("name", "", "Full name")
	addUserRole := addUserCmd.String("role", string(models.RoleAdmin), "admin, staff or student")
	addUserUnit := addUserCmd.String("unit", "", "Unit for staff accounts")
	addUserTrackNo := addUserCmd.String("trackno", "", "Track number for student accounts")
	addUserDepartment := addUserCmd.String("department", "", "Department")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's e-mail. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		req := models.CreateUserRequest{
			Name:     *addUserName,
			Email:    *addUserEmail,
			Password: pwd,
			Role:     models.UserRole(*addUserRole),
		}
		if *addUserUnit != "" {
			unit := models.UnitID(*addUserUnit)
			req.Unit = &unit
		}
		if *addUserTrackNo != "" {
			req.TrackNo = addUserTrackNo
		}
		if *addUserDepartment != "" {
			req.Department = addUserDepartment
		}
		return cli.addUser(req)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}
