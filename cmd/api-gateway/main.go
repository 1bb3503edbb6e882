package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/aju-clearance-api/api/swagger"
	"github.com/noah-isme/aju-clearance-api/internal/repository"
	"github.com/noah-isme/aju-clearance-api/internal/service"
	"github.com/noah-isme/aju-clearance-api/pkg/cache"
	"github.com/noah-isme/aju-clearance-api/pkg/config"
	"github.com/noah-isme/aju-clearance-api/pkg/database"
	"github.com/noah-isme/aju-clearance-api/pkg/export"
	"github.com/noah-isme/aju-clearance-api/pkg/logger"
	"github.com/noah-isme/aju-clearance-api/pkg/mailer"
	"github.com/noah-isme/aju-clearance-api/pkg/storage"
)

// @title AJU Clearance API
// @version 1.0.0
// @description Fee clearance workflow: receipts, unit review, clearance ledger and slips.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, "up"); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("database migrations applied")
	}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable; cache, password reset and change stream disabled", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	store, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Fatal("failed to init receipt storage", zap.Error(err))
	}

	app := buildApp(cfg, db, redisClient, store, logr)
	router := newRouter(cfg, app, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// app holds the services the router exposes.
type app struct {
	auth          *service.AuthService
	users         *service.UserService
	students      *service.StudentService
	fees          *service.FeeService
	receipts      *service.ReceiptService
	review        *service.ReviewService
	clearance     *service.ClearanceService
	rollover      *service.RolloverService
	notifications *service.NotificationService
	events        *service.EventService
	metrics       *service.MetricsService
	policy        service.ReviewPolicy
	studentRepo   *repository.StudentRepository
	auditRepo     *repository.AuditRepository
	db            *sqlx.DB
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, store *storage.LocalStorage, logr *zap.Logger) *app {
	validate := validator.New()
	metrics := service.NewMetricsService()
	policy := service.NewReviewPolicy(cfg.Clearance.SuperReviewerUnits)
	mail := mailer.New(cfg.Mail, logr.Named("mailer"))

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	ledgerRepo := repository.NewClearanceRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	uow := repository.NewUnitOfWork(db)

	cacheRepo := repository.NewCacheRepository(redisClient, "aju", logr.Named("cache"))
	feeCache := service.NewFeeCache(cacheRepo, metrics, cfg.Cache.FeeTTL, logr.Named("cache"), cfg.Cache.Enabled)
	events := service.NewEventService(repository.NewEventRepository(redisClient, "", logr.Named("events")), metrics, logr.Named("events"))
	ledger := service.NewLedger(ledgerRepo, metrics, logr.Named("ledger"))

	receiptSigner := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	slipSigner := storage.NewSignedURLSigner(cfg.Clearance.SlipSecret, cfg.Clearance.SlipTTL)

	return &app{
		auth: service.NewAuthService(userRepo, auditRepo, repository.NewResetTokenRepository(redisClient), mail, validate, logr.Named("auth"), service.AuthConfig{
			AccessTokenSecret:  cfg.JWT.Secret,
			AccessTokenExpiry:  cfg.JWT.Expiration,
			RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
			ResetTokenExpiry:   cfg.JWT.ResetExpiration,
			ResetURL:           cfg.Mail.ResetURL,
			Issuer:             "aju-clearance-api",
		}),
		users:    service.NewUserService(userRepo, studentRepo, unitRepo, auditRepo, validate, logr.Named("users")),
		students: service.NewStudentService(studentRepo, logr.Named("students")),
		fees:     service.NewFeeService(feeRepo, unitRepo, auditRepo, feeCache, validate, logr.Named("fees")),
		receipts: service.NewReceiptService(service.ReceiptServiceDeps{
			Receipts:  receiptRepo,
			Students:  studentRepo,
			Fees:      feeRepo,
			Semesters: semesterRepo,
			Ledger:    ledger,
			Tx:        uow,
			Store:     store,
			Signer:    receiptSigner,
			Events:    events,
			Review:    policy,
			Metrics:   metrics,
			Validator: validate,
			Logger:    logr.Named("receipts"),
		}, service.ReceiptPolicy{
			MaxBytes:        cfg.Receipts.MaxFileSizeBytes,
			AllowedMIMEs:    cfg.Receipts.AllowedMIMEs,
			AllowedExts:     cfg.Receipts.AllowedExts,
			MaxAcademicYear: cfg.Clearance.MaxAcademicYear,
			FileURLPath:     cfg.APIPrefix + "/receipts/file",
		}),
		review: service.NewReviewService(service.ReviewServiceDeps{
			Receipts:      receiptRepo,
			Students:      studentRepo,
			Fees:          feeRepo,
			Semesters:     semesterRepo,
			Notifications: notificationRepo,
			Ledger:        ledger,
			Tx:            uow,
			Store:         store,
			Audit:         auditRepo,
			Mailer:        mail,
			Events:        events,
			Policy:        policy,
			Metrics:       metrics,
			Logger:        logr.Named("review"),
		}),
		clearance: service.NewClearanceService(service.ClearanceServiceDeps{
			Units:         unitRepo,
			Ledger:        ledgerRepo,
			Fees:          feeRepo,
			Students:      studentRepo,
			Semesters:     semesterRepo,
			SlipSigner:    slipSigner,
			Exporter:      export.NewCSVExporter(true),
			SlipRenderer:  export.NewPDFExporter(),
			Policy:        policy,
			ExcludedUnits: cfg.Clearance.ExcludedUnits,
			Logger:        logr.Named("clearance"),
		}),
		rollover:      service.NewRolloverService(semesterRepo, ledgerRepo, uow, auditRepo, events, metrics, validate, logr.Named("rollover")),
		notifications: service.NewNotificationService(notificationRepo, studentRepo, logr.Named("notifications")),
		events:        events,
		metrics:       metrics,
		policy:        policy,
		studentRepo:   studentRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}
