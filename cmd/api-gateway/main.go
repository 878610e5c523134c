package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadrecords/portal-api/api/swagger"
	"github.com/acadrecords/portal-api/internal/handler"
	"github.com/acadrecords/portal-api/internal/middleware"
	"github.com/acadrecords/portal-api/internal/models"
	"github.com/acadrecords/portal-api/internal/repository"
	"github.com/acadrecords/portal-api/internal/service"
	"github.com/acadrecords/portal-api/pkg/cache"
	"github.com/acadrecords/portal-api/pkg/config"
	"github.com/acadrecords/portal-api/pkg/database"
	"github.com/acadrecords/portal-api/pkg/logger"
	corsmiddleware "github.com/acadrecords/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/acadrecords/portal-api/pkg/middleware/requestid"
	"github.com/acadrecords/portal-api/pkg/storage"
)

// @title Academic Records Portal API
// @version 1.0.0
// @description Marks, eligibility, enrollment and claims for the student portal
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis only backs the eligibility cache; run without it if unreachable.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, eligibility caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	fileStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Export.DownloadSecret, cfg.Export.LinkTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sheetRepo := repository.NewSheetRepository(db)
	markRepo := repository.NewMarkRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "portal-api",
	})
	userSvc := service.NewUserService(userRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	markSvc := service.NewMarkService(markRepo, courseRepo, nil, logr)
	eligibilitySvc := service.NewEligibilityService(
		userRepo,
		courseRepo,
		sheetRepo,
		markRepo,
		enrollmentRepo,
		cacheRepo,
		cfg.Academics.PassingThreshold,
		cfg.Eligibility.CacheTTL,
		logr,
	).WithMetrics(metricsSvc)
	sheetSvc := service.NewSheetService(sheetRepo, eligibilitySvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, eligibilitySvc, nil, logr).WithMetrics(metricsSvc)
	claimSvc := service.NewClaimService(claimRepo, markSvc, courseRepo, nil, logr).WithMetrics(metricsSvc)
	exportSvc := service.NewExportService(markRepo, claimRepo, courseRepo, enrollmentRepo, fileStore, signer, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	sheetHandler := handler.NewSheetHandler(sheetSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	claimHandler := handler.NewClaimHandler(claimSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleHeadOfDepartment), authHandler.Register)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		staff := middleware.RequireRoles(models.RoleLecturer, models.RoleHeadOfDepartment)
		hod := middleware.RequireRoles(models.RoleHeadOfDepartment)

		protected.GET("/users", hod, userHandler.List)
		protected.GET("/users/groups", hod, userHandler.ListGroup)
		protected.GET("/users/:id", middleware.RequireRoles(models.RoleHeadOfDepartment, middleware.RoleSelf), userHandler.Get)

		protected.GET("/students/:id/sheet", middleware.RequireRoles(models.RoleLecturer, models.RoleHeadOfDepartment, middleware.RoleSelf), sheetHandler.ListByStudent)
		protected.GET("/students/:id/eligible-courses", middleware.RequireRoles(models.RoleHeadOfDepartment, middleware.RoleSelf), eligibilityHandler.EligibleCourses)
		protected.POST("/sheets", hod, sheetHandler.Assign)
		protected.DELETE("/sheets/:id", hod, sheetHandler.Remove)

		protected.GET("/courses", courseHandler.List)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.POST("/courses", staff, courseHandler.Create)
		protected.PUT("/courses/:id", staff, courseHandler.Update)
		protected.PATCH("/courses/:id/claims", staff, courseHandler.ToggleClaims)
		protected.DELETE("/courses/:id", staff, courseHandler.Delete)
		protected.POST("/courses/:id/mark-sheet", staff, exportHandler.MarkSheet)

		protected.GET("/marks", markHandler.List)
		protected.PUT("/marks", staff, markHandler.Upsert)
		protected.PUT("/marks/bulk", staff, markHandler.BulkUpsert)
		protected.GET("/marks/:id/history", staff, markHandler.History)

		protected.GET("/enrollments", enrollmentHandler.List)
		protected.POST("/enrollments", enrollmentHandler.Create)
		protected.POST("/enrollments/bulk", hod, enrollmentHandler.BulkEnroll)
		protected.DELETE("/enrollments", hod, enrollmentHandler.Delete)

		protected.GET("/claims", claimHandler.List)
		protected.POST("/claims", middleware.RequireRoles(models.RoleStudent), claimHandler.Submit)
		protected.PUT("/claims/:id/resolve", staff, claimHandler.Resolve)
		protected.POST("/claims/report", staff, exportHandler.ClaimReport)

		protected.GET("/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
