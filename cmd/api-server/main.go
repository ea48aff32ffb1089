package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuskit/attendance-api/api/swagger"
	"github.com/campuskit/attendance-api/internal/handler"
	"github.com/campuskit/attendance-api/internal/middleware"
	"github.com/campuskit/attendance-api/internal/models"
	"github.com/campuskit/attendance-api/internal/repository"
	"github.com/campuskit/attendance-api/internal/service"
	"github.com/campuskit/attendance-api/pkg/cache"
	"github.com/campuskit/attendance-api/pkg/clock"
	"github.com/campuskit/attendance-api/pkg/config"
	"github.com/campuskit/attendance-api/pkg/database"
	"github.com/campuskit/attendance-api/pkg/jobs"
	"github.com/campuskit/attendance-api/pkg/logger"
	corsmiddleware "github.com/campuskit/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/attendance-api/pkg/middleware/requestid"
)

// @title Attendance API
// @version 1.0.0
// @description Session attendance lifecycle and status reconciliation
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

	clk, err := clock.NewInZone(cfg.Attendance.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid attendance timezone", "timezone", cfg.Attendance.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, statistics cache disabled", "error", err)
		redisClient = nil
	}

	sessionRepo := repository.NewSessionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Attendance.StatsCacheTTL, logr, cfg.Attendance.StatsCache)
	lifecycleSvc := service.NewLifecycleService(sessionRepo, courseRepo, studentRepo, clk, validate, logr, metricsSvc)
	attendanceSvc := service.NewAttendanceService(lifecycleSvc, sessionRepo, courseRepo, studentRepo, attendanceRepo, cacheSvc, clk, validate, logr, metricsSvc)
	statisticsSvc := service.NewStatisticsService(lifecycleSvc, courseRepo, studentRepo, cacheSvc, logr)
	courseSvc := service.NewCourseService(courseRepo, studentRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)

	sessionHandler := handler.NewSessionHandler(lifecycleSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	statisticsHandler := handler.NewStatisticsHandler(statisticsSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	admin := middleware.RequireRoles(models.RoleAdmin)
	auth := middleware.JWT(cfg.JWT.Secret)

	api := r.Group(cfg.APIPrefix)
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", middleware.OptionalJWT(cfg.JWT.Secret), sessionHandler.Create)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", auth, admin, sessionHandler.Delete)
			sessions.POST("/:id/end", auth, staff, sessionHandler.End)
			sessions.PUT("/:id/students/:studentId", auth, staff, attendanceHandler.UpdateStudentStatus)
			sessions.GET("/course/:courseId", sessionHandler.ListForCourse)
			sessions.GET("/student/:studentId", auth, middleware.RBAC("ADMIN", "INSTRUCTOR", "SELF"), attendanceHandler.ListForStudent)
			sessions.POST("/force-check", auth, admin, sessionHandler.ForceCheck)
			sessions.GET("/stats/course/:courseId", statisticsHandler.CourseStats)
			sessions.GET("/stats/course/:courseId/export", auth, staff, statisticsHandler.Export)
		}

		attendance := api.Group("/attendance")
		{
			attendance.POST("/record", attendanceHandler.Record)
			attendance.POST("/manual", attendanceHandler.RecordManual)
			attendance.POST("", attendanceHandler.RecordLegacy)
			attendance.GET("", attendanceHandler.ListLegacy)
		}

		courses := api.Group("/courses")
		{
			courses.POST("", auth, staff, courseHandler.Create)
			courses.GET("/:id", courseHandler.Get)
			courses.GET("/code/:code", courseHandler.GetByCode)
			courses.POST("/join", courseHandler.Join)
			courses.POST("/:id/attendance-code", auth, staff, courseHandler.RegenerateAttendanceCode)
		}

		students := api.Group("/students")
		{
			students.POST("", studentHandler.Register)
			students.GET("/:idNumber", studentHandler.Get)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepQueue := jobs.NewQueue("session-sweep", func(jobCtx context.Context, _ jobs.Job) error {
		_, err := lifecycleSvc.ForceCheckAllSessions(jobCtx)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	sweepQueue.Start(ctx)
	defer sweepQueue.Stop()

	if cfg.Attendance.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Attendance.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sweepQueue.Enqueue(jobs.Job{Type: "force-check"}); err != nil {
						logr.Sugar().Warnw("failed to enqueue sweep", "error", err)
					}
				}
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timezone", cfg.Attendance.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
