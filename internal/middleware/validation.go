package middleware

import (
	"glauk-api/internal/domain"
	"glauk-api/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	ValidatedQuizParamsKey = "validated_quiz_params"
	ValidatedJobIDKey      = "validated_job_id"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateQuizSubmission validates the quiz options of a multipart submission.
// courseId may come from the form or the query string.
func (vm *ValidationMiddleware) ValidateQuizSubmission() fiber.Handler {
	return func(c *fiber.Ctx) error {
		params, errs := vm.validator.ParseQuizParams(func(key string) string {
			if v := c.FormValue(key); v != "" {
				return v
			}
			if key == "courseId" {
				return c.Query("courseId")
			}
			return ""
		})
		if len(errs) > 0 {
			return errs
		}

		c.Locals(ValidatedQuizParamsKey, params)
		return c.Next()
	}
}

// ValidateJobID validates the jobId query parameter.
func (vm *ValidationMiddleware) ValidateJobID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		jobID := c.Query("jobId")
		if errs := vm.validator.ValidateJobID(jobID); len(errs) > 0 {
			return errs
		}

		c.Locals(ValidatedJobIDKey, jobID)
		return c.Next()
	}
}

// QuizParams returns the options stored by ValidateQuizSubmission.
func QuizParams(c *fiber.Ctx) (domain.QuizParams, bool) {
	p, ok := c.Locals(ValidatedQuizParamsKey).(domain.QuizParams)
	return p, ok
}
