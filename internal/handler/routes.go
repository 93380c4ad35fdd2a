package handler

import (
	"time"

	"glauk-api/internal/middleware"
	"glauk-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

type AppOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// NewApp builds the fiber app with the shared middleware stack and routes.
func NewApp(opts AppOptions, authService service.AuthService, quiz *QuizHandler, health *HealthHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.ReadTimeout,
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))

	app.Get("/health", health.Health)
	app.Get("/swagger/*", swagger.HandlerDefault)

	validation := middleware.NewValidationMiddleware()
	quizGroup := app.Group("/api/quiz", middleware.Protected(authService))
	quizGroup.Post("/add-quiz-process", validation.ValidateQuizSubmission(), quiz.AddQuizProcess)
	quizGroup.Get("/quiz-job-status", validation.ValidateJobID(), quiz.GetQuizJobStatus)

	return app
}
