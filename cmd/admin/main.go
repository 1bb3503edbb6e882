package main

import (
	"errors"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/aju-clearance-api/internal/repository"
	"github.com/noah-isme/aju-clearance-api/internal/service"
	"github.com/noah-isme/aju-clearance-api/pkg/config"
	"github.com/noah-isme/aju-clearance-api/pkg/database"
	"github.com/noah-isme/aju-clearance-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	cli := commandLine{
		db:       db.DB,
		accounts: users,
		users: service.NewUserService(users, repository.NewStudentRepository(db), repository.NewUnitRepository(db),
			repository.NewAuditRepository(db), validator.New(), logr.Named("admin")),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			log.Printf("error: %v", err)
		}
		db.Close()
		os.Exit(1)
	}
}
