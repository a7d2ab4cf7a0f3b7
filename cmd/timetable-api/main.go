package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/schoolplan/timetable-api/api/swagger"
	"github.com/schoolplan/timetable-api/internal/handler"
	"github.com/schoolplan/timetable-api/internal/middleware"
	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/internal/repository"
	"github.com/schoolplan/timetable-api/internal/service"
	"github.com/schoolplan/timetable-api/pkg/cache"
	"github.com/schoolplan/timetable-api/pkg/config"
	"github.com/schoolplan/timetable-api/pkg/database"
	"github.com/schoolplan/timetable-api/pkg/export"
	"github.com/schoolplan/timetable-api/pkg/logger"
	corsmiddleware "github.com/schoolplan/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolplan/timetable-api/pkg/middleware/requestid"
)

// @title Timetable Back Office API
// @version 1.0.0
// @description Binding and schedule-constraint management for school timetabling
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

	validate := validator.New()
	metrics := service.NewMetricsService()

	bindingRepo := repository.NewBindingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	lookupRepo := repository.NewLookupRepository(db)
	userRepo := repository.NewUserRepository(db)

	var capacityCache *repository.CacheRepository
	if cfg.Capacity.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, capacity cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			capacityCache = repository.NewCacheRepository(redisClient, logr)
		}
	}

	resolver := service.NewResolverService(lookupRepo)
	capacitySvc := newCapacityService(cfg, lookupRepo, capacityCache, metrics, logr)
	bindingSvc := service.NewBindingService(bindingRepo, resolver, capacitySvc, metrics, validate, logr, cfg.Timetable.SerializeWrites)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, resolver, cfg.Timetable.DailyMinutesBudget, metrics, validate, logr, cfg.Timetable.SerializeWrites)
	exportSvc := service.NewExportService(bindingSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)

	bindingHandler := handler.NewBindingHandler(bindingSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleOrgAdmin))

	authed.POST("/bindings", bindingHandler.Create)
	authed.GET("/bindings/:id", bindingHandler.Get)
	authed.PUT("/bindings/:id", bindingHandler.Update)
	authed.DELETE("/bindings/:id", bindingHandler.Delete)
	authed.POST("/bindings/replace", bindingHandler.Replace)
	authed.POST("/bindings/:id/rules/:ruleId", bindingHandler.AttachRule)
	authed.DELETE("/bindings/:id/rules/:ruleId", bindingHandler.DetachRule)

	authed.GET("/teachers/:id/bindings", bindingHandler.ListByTeacher)
	authed.GET("/teachers/:id/availability", availabilityHandler.ListByTeacher)
	authed.POST("/teachers/:id/availability", availabilityHandler.Create)
	authed.PUT("/availability/:id", availabilityHandler.Update)
	authed.DELETE("/availability/:id", availabilityHandler.Delete)

	if cfg.Exports.Enabled {
		authed.GET("/teachers/:id/bindings/export.csv", exportHandler.RosterCSV)
		authed.GET("/teachers/:id/bindings/export.pdf", exportHandler.RosterPDF)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newCapacityService(cfg *config.Config, lookups *repository.LookupRepository, capacityCache *repository.CacheRepository, metrics *service.MetricsService, logr *zap.Logger) *service.CapacityService {
	if capacityCache == nil {
		return service.NewCapacityService(lookups, nil, 0, cfg.Timetable, metrics, logr)
	}
	return service.NewCapacityService(lookups, capacityCache, cfg.Capacity.CacheTTL, cfg.Timetable, metrics, logr)
}
