package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/anon-univ/timetable-engine/api/swagger"
	internalhandler "github.com/anon-univ/timetable-engine/internal/handler"
	internalmiddleware "github.com/anon-univ/timetable-engine/internal/middleware"
	"github.com/anon-univ/timetable-engine/internal/models"
	"github.com/anon-univ/timetable-engine/internal/repository"
	"github.com/anon-univ/timetable-engine/internal/service"
	"github.com/anon-univ/timetable-engine/internal/timetable"
	"github.com/anon-univ/timetable-engine/pkg/cache"
	"github.com/anon-univ/timetable-engine/pkg/config"
	"github.com/anon-univ/timetable-engine/pkg/database"
	"github.com/anon-univ/timetable-engine/pkg/logger"
	corsmiddleware "github.com/anon-univ/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/anon-univ/timetable-engine/pkg/middleware/requestid"
)

// @title Timetable Engine API
// @version 0.1.0
// @description Conflict-free weekly academic timetable generation service
// @BasePath /
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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	authRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(authRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timetable-engine",
		Audience:           []string{"timetable-engine-clients"},
	})
	authHandler := internalhandler.NewAuthHandler(authSvc)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)
	protectedAuth := authRoutes.Group("")
	protectedAuth.Use(internalmiddleware.JWT(authSvc))
	protectedAuth.GET("/me", authHandler.Me)
	protectedAuth.POST("/logout", authHandler.Logout)
	protectedAuth.POST("/change-password", authHandler.ChangePassword)

	semesterScheduleRepo := repository.NewSemesterScheduleRepository(db)
	semesterSlotRepo := repository.NewSemesterScheduleSlotRepository(db)

	var cacheRepo service.CacheRepository
	if cfg.Scheduler.Enabled {
		if client, err := cache.NewRedis(cfg.Redis); err != nil {
			logr.Sugar().Warnw("scheduler proposal cache disabled", "error", err)
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}

	var schedulerHandler *internalhandler.ScheduleGeneratorHandler
	if cfg.Scheduler.Enabled {
		solverCfg := timetable.DefaultConfig()
		if cfg.Scheduler.PopulationSize > 0 {
			solverCfg.Evolution.PopulationSize = cfg.Scheduler.PopulationSize
		}
		if cfg.Scheduler.Generations > 0 {
			solverCfg.Evolution.Generations = cfg.Scheduler.Generations
		}
		if cfg.Scheduler.Seed != 0 {
			solverCfg.Seed = cfg.Scheduler.Seed
		}
		if cfg.Scheduler.FitnessThreshold > 0 {
			solverCfg.SuccessThreshold = cfg.Scheduler.FitnessThreshold
		}
		solverCfg.MaxWallClockSeconds = cfg.Scheduler.MaxWallClockSecs
		schedulerDriver := timetable.NewDriver(solverCfg)

		schedulerSvc := service.NewScheduleGeneratorService(
			schedulerDriver,
			semesterScheduleRepo,
			semesterSlotRepo,
			db,
			cacheRepo,
			metricsSvc,
			nil,
			logr,
			service.ScheduleGeneratorConfig{
				ProposalTTL:      cfg.Scheduler.ProposalTTL,
				MaxAttempts:      cfg.Scheduler.MaxAttempts,
				FitnessThreshold: cfg.Scheduler.FitnessThreshold,
			},
		)
		schedulerHandler = internalhandler.NewScheduleGeneratorHandler(schedulerSvc)
	}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	if schedulerHandler != nil {
		schedulerGroup := secured.Group("")
		adminOnly := internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin))
		viewers := internalmiddleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), string(models.RoleSuperAdmin))
		schedulerGroup.POST("/schedule/generate", adminOnly, internalmiddleware.Audit(authRepo, "generate", "semester_schedule"), schedulerHandler.Generate)
		schedulerGroup.POST("/schedules/generator", adminOnly, internalmiddleware.Audit(authRepo, "generate", "semester_schedule"), schedulerHandler.GenerateAlias)
		schedulerGroup.POST("/schedule/save", adminOnly, internalmiddleware.Audit(authRepo, "save", "semester_schedule"), schedulerHandler.Save)
		schedulerGroup.GET("/semester-schedule", viewers, schedulerHandler.List)
		schedulerGroup.GET("/semester-schedule/:id/slots", viewers, schedulerHandler.Slots)
		schedulerGroup.DELETE("/semester-schedule/:id", internalmiddleware.RBAC(string(models.RoleSuperAdmin)), internalmiddleware.Audit(authRepo, "delete", "semester_schedule"), schedulerHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
