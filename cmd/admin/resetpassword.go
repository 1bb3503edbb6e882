package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

func (cli *commandLine) resetPassword(email, pwd string) error {
	if len(pwd) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	ctx := context.Background()
	usr, err := cli.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := cli.accounts.UpdatePassword(ctx, usr.ID, string(hash), time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := cli.accounts.RevokeUserRefreshTokens(ctx, usr.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	fmt.Fprintf(cli.out, "password reset for %s\n", usr.Email)
	return nil
}
