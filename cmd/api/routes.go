package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/progress-tracker-api/api/swagger"
	"github.com/noah-isme/progress-tracker-api/internal/handler"
	"github.com/noah-isme/progress-tracker-api/internal/middleware"
	"github.com/noah-isme/progress-tracker-api/internal/models"
	"github.com/noah-isme/progress-tracker-api/internal/repository"
	"github.com/noah-isme/progress-tracker-api/internal/service"
	"github.com/noah-isme/progress-tracker-api/pkg/config"
	"github.com/noah-isme/progress-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/progress-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/progress-tracker-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client, denylist service.TokenDenylist) *gin.Engine {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assistantRepo := repository.NewAssistantRepository(db)
	requestRepo := repository.NewEnrollmentRequestRepository(db)
	recordRepo := repository.NewStudentRecordRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Courses.CacheTTL, logr, cfg.Courses.CacheEnabled && redisClient != nil)
	access := service.NewCourseAccess(assistantRepo)

	authSvc := service.NewAuthService(userRepo, denylist, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, access, cacheSvc, validate, logr, service.CourseConfig{
		DefaultCapacity: cfg.Courses.DefaultCapacity,
		CacheTTL:        cfg.Courses.CacheTTL,
	})
	assistantSvc := service.NewAssistantService(assistantRepo, courseRepo, userRepo, access, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(db, courseRepo, requestRepo, recordRepo, userRepo, access, metrics, cacheSvc, validate, logr, service.EnrollmentConfig{
		ResolvePendingOnDirectEnroll: cfg.Enrollment.ResolvePendingOnDirectEnroll,
		EnforceCapacityOnApproval:    cfg.Enrollment.EnforceCapacityOnApproval,
	})
	assignmentSvc := service.NewAssignmentService(db, assignmentRepo, courseRepo, submissionRepo, recordRepo, userRepo, access, validate, logr)
	submissionSvc := service.NewSubmissionService(db, submissionRepo, assignmentRepo, courseRepo, recordRepo, userRepo, access, validate, logr)
	reportSvc := service.NewReportService(reportRepo, userRepo, courseRepo, logr, service.ReportConfig{
		Enabled:  cfg.Reports.Enabled,
		PDFTitle: cfg.Reports.PDFTitle,
	})
	statsSvc := service.NewStatsService(statsRepo, courseRepo, userRepo, recordRepo, access, logr)
	badgeSvc := service.NewBadgeService(assignmentRepo, submissionRepo, recordRepo, userRepo, courseRepo, logr)

	var cachePinger handler.Pinger
	if redisClient != nil {
		cachePinger = handler.PingerFunc(cacheRepo.Ping)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	assistantHandler := handler.NewAssistantHandler(assistantSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	statsHandler := handler.NewStatsHandler(statsSvc)
	badgeHandler := handler.NewBadgeHandler(badgeSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db, cachePinger, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action, resource, param string) gin.HandlerFunc {
		return middleware.Audit(userRepo, logr, action, resource, param)
	}
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)

	users := secured.Group("/users", middleware.RequireRoles(models.RoleAdmin))
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)

	courses := secured.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.POST("", staff, courseHandler.Create)
	courses.GET("/:courseId", courseHandler.Get)
	courses.PUT("/:courseId", courseHandler.Update)
	courses.PATCH("/:courseId/archive", courseHandler.ToggleArchive)
	courses.DELETE("/:courseId", middleware.RequireRoles(models.RoleAdmin), audit(models.AuditActionCourseDelete, "course", "courseId"), courseHandler.Delete)
	courses.GET("/:courseId/stats", courseHandler.Stats)

	courses.GET("/:courseId/assistants", assistantHandler.List)
	courses.POST("/:courseId/assistants", audit(models.AuditActionAssistantAssign, "course_assistant", "courseId"), assistantHandler.Assign)
	courses.PATCH("/:courseId/assistants/:assistantId/permissions", assistantHandler.UpdatePermissions)
	courses.DELETE("/:courseId/assistants/:assistantId", audit(models.AuditActionAssistantRemove, "course_assistant", "assistantId"), assistantHandler.Remove)

	courses.POST("/:courseId/request-enrollment", studentOnly, enrollmentHandler.RequestEnrollment)
	courses.POST("/:courseId/enroll", studentOnly, enrollmentHandler.Enroll)
	courses.GET("/:courseId/enrollment-status", studentOnly, enrollmentHandler.Status)
	courses.GET("/:courseId/enrollment-requests", enrollmentHandler.CourseRequests)
	courses.GET("/:courseId/students", enrollmentHandler.Roster)
	courses.POST("/:courseId/unenroll", studentOnly, enrollmentHandler.Unenroll)
	courses.POST("/:courseId/mark-completed", studentOnly, enrollmentHandler.MarkCompleted)

	courses.GET("/:courseId/assignments", assignmentHandler.ListByCourse)
	courses.POST("/:courseId/assignments", assignmentHandler.Create)

	requests := secured.Group("/enrollment-requests")
	requests.GET("/mine", studentOnly, enrollmentHandler.MyRequests)
	requests.GET("/pending", staff, enrollmentHandler.PendingRequests)
	requests.PATCH("/:id/approve", audit(models.AuditActionEnrollmentApprove, "enrollment_request", "id"), enrollmentHandler.Approve)
	requests.PATCH("/:id/reject", audit(models.AuditActionEnrollmentReject, "enrollment_request", "id"), enrollmentHandler.Reject)
	requests.DELETE("/:id", studentOnly, enrollmentHandler.Cancel)

	secured.GET("/students/enrollment-history", studentOnly, enrollmentHandler.History)

	assignments := secured.Group("/assignments")
	assignments.GET("/upcoming", assignmentHandler.Upcoming)
	assignments.GET("/:id", assignmentHandler.Get)
	assignments.PUT("/:id", assignmentHandler.Update)
	assignments.DELETE("/:id", assignmentHandler.Delete)
	assignments.POST("/:id/duplicate", assignmentHandler.Duplicate)
	assignments.POST("/:id/submit", studentOnly, assignmentHandler.Submit)
	assignments.GET("/:id/submissions", submissionHandler.ListByAssignment)

	submissions := secured.Group("/submissions")
	submissions.GET("/course/:courseId", submissionHandler.ListByCourse)
	submissions.GET("/student/:studentId", submissionHandler.ListByStudent)
	submissions.GET("/:id", submissionHandler.Get)
	submissions.PUT("/:id", audit(models.AuditActionSubmissionGrade, "submission", "id"), submissionHandler.Grade)

	reports := secured.Group("/reports", staff)
	reports.GET("/students/:studentId", audit(models.AuditActionReportExport, "student_report", "studentId"), reportHandler.StudentReport)
	reports.GET("/students/:studentId/validate", reportHandler.ValidateStudent)
	reports.GET("/courses/:courseId", audit(models.AuditActionReportExport, "course_report", "courseId"), reportHandler.CourseReport)
	reports.GET("/courses/:courseId/validate", reportHandler.ValidateCourse)

	stats := secured.Group("/stats")
	stats.GET("/submissions/:courseId", staff, statsHandler.Submissions)
	stats.GET("/progress", studentOnly, statsHandler.MyProgress)
	stats.GET("/progress/:studentId", statsHandler.Progress)
	stats.GET("/trends/:studentId", statsHandler.Trends)

	badges := secured.Group("/badges")
	badges.GET("", badgeHandler.Definitions)
	badges.GET("/definitions", badgeHandler.Definitions)
	badges.GET("/definitions/:badgeId", badgeHandler.Definition)
	badges.GET("/student/:studentId", badgeHandler.Student)
	badges.GET("/student/:studentId/course/:courseId", badgeHandler.Course)

	return r
}
