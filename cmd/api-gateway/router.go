package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/handler"
	"github.com/noah-isme/aju-clearance-api/internal/middleware"
	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/config"
	"github.com/noah-isme/aju-clearance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/aju-clearance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/aju-clearance-api/pkg/middleware/requestid"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

func newRouter(cfg *config.Config, a *app, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.ResponseMeta())

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Swagger.Enabled || cfg.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(a.auth, nil)
	staffOnly := middleware.RequireRoles(nil, models.RoleAdmin, models.RoleStaff)
	studentOnly := middleware.RequireRoles(nil, models.RoleStudent)

	// Admin account routes keep their flat {"error"} contract.
	users := handler.NewUserHandler(a.users)
	adminAuth := middleware.JWT(a.auth, response.AdminFailure)
	adminRoles := middleware.RequireRoles(response.AdminFailure, models.RoleAdmin, models.RoleStaff)
	r.GET("/api/admin/users", adminAuth, adminRoles, users.List)
	r.DELETE("/api/admin/users", adminAuth, adminRoles, users.Delete)
	r.POST("/api/create-user", adminAuth, adminRoles, users.Create)

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(a.auth)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.POST("/logout", auth, authHandler.Logout)
	authGroup.POST("/change-password", auth, authHandler.ChangePassword)
	authGroup.GET("/me", auth, authHandler.Me)

	fees := handler.NewFeeHandler(a.fees)
	api.GET("/fees", auth, fees.List)
	api.GET("/fees/:id", auth, fees.Get)
	api.POST("/fees", auth, staffOnly, fees.Create)
	api.PATCH("/fees/:id", auth, staffOnly, fees.Update)
	api.DELETE("/fees/:id", auth, staffOnly, fees.Delete)

	receipts := handler.NewReceiptHandler(a.receipts, cfg.Receipts.MaxFileSizeBytes)
	api.GET("/receipts/file", receipts.File)
	api.POST("/receipts", auth, studentOnly, receipts.Submit)
	api.GET("/receipts/mine", auth, studentOnly, receipts.ListMine)
	api.GET("/receipts/:id/url", auth, receipts.SignedURL)

	review := handler.NewReviewHandler(a.review)
	reviewGroup := api.Group("/review", auth, staffOnly)
	reviewGroup.GET("/queue", review.Queue)
	reviewGroup.POST("/receipts/:id/decision", review.Decide)
	reviewGroup.POST("/units/:unitId/override", review.Override)

	clearance := handler.NewClearanceHandler(a.clearance)
	api.GET("/clearance/slip/verify", clearance.VerifySlip)
	clearanceGroup := api.Group("/clearance", auth)
	clearanceGroup.GET("/me", studentOnly, clearance.Me)
	clearanceGroup.GET("/slip", studentOnly, clearance.Slip)
	clearanceGroup.GET("/slip/pdf", studentOnly, clearance.SlipPDF)
	clearanceGroup.GET("/lookup", staffOnly, clearance.Lookup)
	clearanceGroup.GET("/students/:studentId", staffOnly, clearance.Student)
	clearanceGroup.GET("/units/:unitId", staffOnly, clearance.UnitLedger)
	clearanceGroup.GET("/units/:unitId/export", staffOnly,
		middleware.Audit(a.auditRepo, logr.Named("audit"), models.AuditActionLedgerExport, "clearance_status"),
		clearance.ExportUnitLedger)

	students := handler.NewStudentHandler(a.students)
	api.GET("/students", auth, staffOnly, students.List)
	api.GET("/students/:id", auth, staffOnly, students.Get)

	semesters := handler.NewSemesterHandler(a.rollover)
	api.GET("/semesters", auth, semesters.List)
	api.GET("/semesters/current", auth, semesters.Current)
	api.POST("/semesters/rollover", auth, middleware.RequireRoles(nil, models.RoleAdmin), semesters.Rollover)

	notifications := handler.NewNotificationHandler(a.notifications)
	notificationGroup := api.Group("/notifications", auth, studentOnly)
	notificationGroup.GET("", notifications.List)
	notificationGroup.POST("/:id/read", notifications.MarkRead)
	notificationGroup.POST("/:id/dismiss", notifications.Dismiss)

	events := handler.NewEventHandler(a.events, a.studentRepo, a.policy)
	api.GET("/events/stream", middleware.StreamJWT(a.auth), events.Stream)

	return r
}
