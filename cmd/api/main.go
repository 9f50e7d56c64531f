package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edumark/school-results-api/api/swagger"
	"github.com/edumark/school-results-api/internal/handler"
	"github.com/edumark/school-results-api/internal/middleware"
	"github.com/edumark/school-results-api/internal/models"
	"github.com/edumark/school-results-api/internal/repository"
	"github.com/edumark/school-results-api/internal/service"
	"github.com/edumark/school-results-api/pkg/cache"
	"github.com/edumark/school-results-api/pkg/config"
	"github.com/edumark/school-results-api/pkg/database"
	"github.com/edumark/school-results-api/pkg/jobs"
	"github.com/edumark/school-results-api/pkg/logger"
	corsmiddleware "github.com/edumark/school-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edumark/school-results-api/pkg/middleware/requestid"
	"github.com/edumark/school-results-api/pkg/storage"
)

// @title School Results API
// @version 1.0.0
// @description Multi-tenant result publication and PIN verification service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	resultRepo := repository.NewResultRepository(db)
	pinRepo := repository.NewPinRepository(db)
	pinRequestRepo := repository.NewPinRequestRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	accessLogRepo := repository.NewAccessLogRepository(db)

	exportArchive, err := storage.NewArchive(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export archive", "error", err)
	}
	tokenSigner := storage.NewTokenSigner(cfg.JWT.Secret, cfg.Export.LinkTTL)

	queue := jobs.NewQueue("background", func(ctx context.Context, job jobs.Job) error {
		switch job.Type {
		case "access-log":
			entry, ok := job.Payload.(models.AccessLog)
			if !ok {
				return nil
			}
			return accessLogRepo.Create(ctx, &entry)
		case "export-sweep":
			_, err := exportArchive.Sweep(cfg.Export.LinkTTL)
			return err
		}
		return nil
	}, jobs.QueueConfig{Workers: 2, Logger: logr})
	queue.Start(context.Background())
	defer queue.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			_ = queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "export-sweep"})
		}
	}()

	metrics := service.NewMetricsService()
	auditor := service.NewAccessAuditor(accessLogRepo, metrics, logr, service.WithAuditQueue(queue))
	resultService := service.NewResultService(resultRepo, schoolRepo, logr)
	pinService := service.NewPinService(pinRepo, pinRequestRepo, schoolRepo, resultRepo, auditor, cfg.Pins, logr)
	studentService := service.NewStudentService(schoolRepo, logr)
	exportService := service.NewExportService(pinRequestRepo, exportArchive, tokenSigner, logr)

	resultHandler := handler.NewResultHandler(resultService)
	pinHandler := handler.NewPinHandler(pinService)
	verifyHandler := handler.NewVerifyHandler(pinService)
	studentHandler := handler.NewStudentHandler(studentService)
	exportHandler := handler.NewExportHandler(exportService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/verify-result",
		middleware.RateLimit(redisClient, cfg.Verify.RateLimit, cfg.Verify.RateLimitWindow, logr),
		verifyHandler.Verify)

	auth := api.Group("", middleware.JWT(cfg.JWT.Secret))

	results := auth.Group("/results")
	{
		results.GET("", resultHandler.List)
		results.GET("/:id", resultHandler.Get)
		results.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleSchoolAdmin), resultHandler.Create)
		results.PUT("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleSchoolAdmin), resultHandler.Update)
		results.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleSchoolAdmin), resultHandler.Delete)
		results.POST("/:id/submit", middleware.RequireRoles(models.RoleTeacher, models.RoleSchoolAdmin), resultHandler.Submit)
		results.POST("/:id/approve", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), resultHandler.Approve)
		results.POST("/:id/reject", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), resultHandler.Reject)
		results.POST("/:id/reopen", middleware.RequireRoles(models.RoleTeacher, models.RoleSchoolAdmin), resultHandler.Reopen)
	}

	pins := auth.Group("/pins")
	{
		pins.GET("", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), pinHandler.List)
		pins.POST("/generate", middleware.RequireRoles(models.RoleSuperAdmin), pinHandler.Generate)
	}

	pinRequests := auth.Group("/pin-requests")
	{
		pinRequests.GET("", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), pinHandler.ListRequests)
		pinRequests.GET("/:id", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), pinHandler.GetRequest)
		pinRequests.POST("", middleware.RequireRoles(models.RoleSchoolAdmin), pinHandler.CreateRequest)
		pinRequests.POST("/:id/approve", middleware.RequireRoles(models.RoleSuperAdmin), pinHandler.ApproveRequest)
		pinRequests.POST("/:id/reject", middleware.RequireRoles(models.RoleSuperAdmin), pinHandler.RejectRequest)
		pinRequests.POST("/:id/export", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), exportHandler.Export)
	}

	// Download links are pre-signed; no bearer token required.
	api.GET("/downloads", exportHandler.Download)

	students := auth.Group("/students")
	{
		students.GET("/:id", studentHandler.Get)
		students.POST("", middleware.RequireRoles(models.RoleSchoolAdmin, models.RoleSuperAdmin), studentHandler.Register)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
