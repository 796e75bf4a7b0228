package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/driveline/driveline/internal/config"
	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/handler"
	"github.com/driveline/driveline/internal/middleware"
	"github.com/driveline/driveline/internal/repository"
	"github.com/driveline/driveline/internal/service"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	AuthClient  service.FirebaseAuthClient

	// FileRepo overrides the S3 document store, used by tests
	FileRepo domain.FileRepository
	// Payment overrides the checkout provider, used by tests
	Payment service.PaymentProvider
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	profileRepo := repository.NewMongoProfileRepository(deps.MongoDB)
	courseRepo := repository.NewMongoCourseRepository(deps.MongoDB)
	enrollmentRepo := repository.NewMongoEnrollmentRepository(deps.MongoDB)
	saleCodeRepo := repository.NewMongoSaleCodeRepository(deps.MongoDB)
	refreshTokenRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)

	lessonRepo := repository.NewCachedLessonRepository(
		repository.NewMongoLessonRepository(deps.MongoDB),
		cacheRepo,
	)

	fileRepo := deps.FileRepo
	if fileRepo == nil {
		s3Repo, err := repository.NewS3DocumentRepository(context.Background(), deps.Config.S3)
		if err != nil {
			log.Printf("Warning: failed to initialize S3 document repository: %v", err)
		} else {
			fileRepo = s3Repo
		}
	}

	payment := deps.Payment
	if payment == nil {
		payment = service.NewPaymentProvider(deps.Config.Checkout)
	}

	// Initialize services
	authService := service.NewAuthService(profileRepo, deps.AuthClient)
	tokenService := service.NewTokenService(deps.Config.JWT, refreshTokenRepo, profileRepo)
	courseService := service.NewCourseService(courseRepo, cacheRepo)
	saleCodeService := service.NewSaleCodeService(saleCodeRepo)
	enrollmentService := service.NewEnrollmentService(
		enrollmentRepo, courseRepo, profileRepo, fileRepo, payment, saleCodeService, cacheRepo,
	)
	lessonService := service.NewLessonService(lessonRepo, enrollmentRepo, profileRepo, courseRepo)
	dashboardService := service.NewDashboardService(enrollmentRepo, lessonRepo, profileRepo, courseRepo, cacheRepo)
	userService := service.NewUserService(profileRepo, lessonRepo, cacheRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, tokenService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, deps.Config.Server.MaxUploadSizeMB)
	lessonHandler := handler.NewLessonHandler(lessonService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	saleCodeHandler := handler.NewSaleCodeHandler(saleCodeService)
	webhookHandler := handler.NewWebhookHandler(enrollmentService, payment)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Driveline API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(middleware.Idempotency(deps.RedisClient, 10*time.Minute))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "driveline",
		})
	})

	// Payment gateway callback (signed, not JWT-authenticated)
	app.Post("/webhooks/payment", webhookHandler.PaymentNotification)

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/login", authHandler.LoginOrRegister)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// Course catalog (any signed-in role)
	courses := v1.Group("/courses")
	courses.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	courses.Get("/", courseHandler.ListActive)
	courses.Get("/:id", courseHandler.GetCourse)

	// ===========================================
	// SELF API - /v1/me/* (any signed-in role)
	// ===========================================
	me := v1.Group("/me")
	me.Use(middleware.VerifyToken(deps.Config.JWT.Secret))

	me.Get("/", userHandler.GetMe)
	me.Patch("/", userHandler.UpdateMe)
	me.Get("/lessons", lessonHandler.ListMine)
	me.Get("/lessons/:id", lessonHandler.GetLesson)
	me.Patch("/lessons/:id/slot", lessonHandler.Reschedule)
	me.Post("/lessons/:id/cancel", lessonHandler.Cancel)
	me.Patch("/lessons/:id/notes", lessonHandler.AttachNote)

	// Student-only onboarding surface
	student := me.Group("/", middleware.AuthorizeRole(domain.RoleStudent))
	student.Get("/dashboard", dashboardHandler.Student)
	student.Get("/onboarding", enrollmentHandler.GetOnboarding)
	student.Post("/enrollment", enrollmentHandler.SelectCourse)
	student.Post("/enrollment/payment", enrollmentHandler.InitiatePayment)
	student.Post("/enrollment/documents", enrollmentHandler.UploadDocument)
	student.Post("/enrollment/documents/retry", enrollmentHandler.RetryDocumentFlag)
	student.Post("/lessons", lessonHandler.Book)
	student.Post("/sale-codes/validate", saleCodeHandler.Validate)
	student.Get("/teachers", userHandler.ListTeachers)

	// ===========================================
	// TEACHER API - /v1/teach/* (requires 'teacher' role)
	// ===========================================
	teach := v1.Group("/teach")
	teach.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	teach.Use(middleware.AuthorizeRole(domain.RoleTeacher))

	teach.Get("/dashboard", dashboardHandler.Teacher)
	teach.Get("/enrollments/awaiting", enrollmentHandler.ListAwaiting)
	teach.Post("/enrollments/:id/confirm", enrollmentHandler.Confirm)
	teach.Post("/lessons/:id/approve", lessonHandler.Approve)
	teach.Post("/lessons/:id/decline", lessonHandler.Decline)
	teach.Post("/lessons/:id/complete", lessonHandler.Complete)

	// ===========================================
	// ADMIN API - /v1/admin/* (requires 'admin' role)
	// ===========================================
	admin := v1.Group("/admin")
	admin.Use(middleware.VerifyToken(deps.Config.JWT.Secret))
	admin.Use(middleware.AuthorizeRole(domain.RoleAdmin))

	admin.Get("/dashboard", dashboardHandler.Admin)
	admin.Get("/enrollments", enrollmentHandler.ListAll)
	admin.Post("/enrollments/:id/confirm", enrollmentHandler.Confirm)

	adminLessons := admin.Group("/lessons")
	adminLessons.Get("/", lessonHandler.ListAll)
	adminLessons.Post("/:id/approve", lessonHandler.Approve)
	adminLessons.Post("/:id/decline", lessonHandler.Decline)
	adminLessons.Post("/:id/complete", lessonHandler.Complete)
	adminLessons.Post("/:id/cancel", lessonHandler.Cancel)

	adminUsers := admin.Group("/users")
	adminUsers.Get("/", userHandler.ListUsers)
	adminUsers.Post("/", userHandler.CreateUser)
	adminUsers.Get("/:id", userHandler.GetUser)
	adminUsers.Patch("/:id/role", userHandler.AssignRole)
	adminUsers.Delete("/:id", userHandler.DeleteUser)

	adminCourses := admin.Group("/courses")
	adminCourses.Get("/", courseHandler.ListAll)
	adminCourses.Post("/", courseHandler.CreateCourse)
	adminCourses.Put("/:id", courseHandler.UpdateCourse)
	adminCourses.Patch("/:id/active", courseHandler.SetActive)

	adminSaleCodes := admin.Group("/sale-codes")
	adminSaleCodes.Get("/", saleCodeHandler.List)
	adminSaleCodes.Post("/", saleCodeHandler.Create)
	adminSaleCodes.Post("/:id/deactivate", saleCodeHandler.Deactivate)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
