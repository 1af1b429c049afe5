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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-report-api/api/swagger"
	"github.com/noah-isme/lms-report-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lms-report-api/internal/middleware"
	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/repository"
	"github.com/noah-isme/lms-report-api/internal/service"
	"github.com/noah-isme/lms-report-api/pkg/cache"
	"github.com/noah-isme/lms-report-api/pkg/config"
	"github.com/noah-isme/lms-report-api/pkg/database"
	"github.com/noah-isme/lms-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-report-api/pkg/middleware/requestid"
)

// @title LMS Report API
// @version 1.0.0
// @description Cached student, course and instructor analytics reports
// @BasePath /api
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Reports.MetricCacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("metric cache disabled: redis unavailable", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr, cfg.Reports.BreakerFailures, cfg.Reports.BreakerTimeout)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheBackend service.CacheRepository
	if cacheRepo != nil {
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metricsSvc, cfg.Reports.MetricCacheTTL, logr, cacheRepo != nil)

	reportSvc, err := service.NewReportService(service.ReportServiceParams{
		Store:       repository.NewReportRepository(db),
		Ledger:      repository.NewAdminReportRepository(db),
		Students:    repository.NewStudentMetricsRepository(db),
		Courses:     repository.NewCourseMetricsRepository(db),
		Instructors: repository.NewInstructorMetricsRepository(db),
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config: service.ReportServiceConfig{
			TopN:     cfg.Reports.TopN,
			CacheTTL: cfg.Reports.MetricCacheTTL,
		},
	})
	if err != nil {
		logr.Fatal("report service init failed", zap.Error(err))
	}
	exportSvc := service.NewExportService(reportSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, nil)
	if cacheRepo != nil {
		metricsHandler = handler.NewMetricsHandler(metricsSvc, db, cacheRepo)
	}
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var guards []gin.HandlerFunc
	if cfg.Reports.AuthEnabled {
		guards = append(guards,
			internalmiddleware.AdminJWT(cfg.JWT.Secret),
			internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	}
	var generateGuards []gin.HandlerFunc
	if cfg.Reports.RateLimitPerMinute > 0 {
		limiter := internalmiddleware.NewRateLimiter(cfg.Reports.RateLimitPerMinute, cfg.Reports.RateLimitBurst)
		generateGuards = append(generateGuards, internalmiddleware.RateLimit(limiter))
	}
	handler.NewReportHandler(reportSvc, exportSvc).RegisterRoutes(r.Group(cfg.APIPrefix), guards, generateGuards)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "metric_cache", cacheRepo != nil, "report_auth", cfg.Reports.AuthEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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
