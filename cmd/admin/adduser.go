package main

import (
	"context"
	"fmt"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// addUser provisions an account through the same path as the admin API.
func (cli *commandLine) addUser(req models.CreateUserRequest) error {
	userID, err := cli.users.Create(context.Background(), cliActor, req, models.LoginRequest{UserAgent: "admin-cli"})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s (%s)\n", req.Role, req.Email, userID)
	return nil
}
