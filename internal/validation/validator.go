package validation

import (
	"strconv"
	"strings"

	"glauk-api/internal/domain"
	"glauk-api/internal/util"
)

const maxAdditionalNotes = 2000

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ParseQuizParams reads quiz options from form values. Enum values are
// matched case-insensitively; range checks are left to QuizParams.Validate.
func (v *Validator) ParseQuizParams(value func(key string) string) (domain.QuizParams, domain.ValidationErrors) {
	var errors domain.ValidationErrors
	params := domain.QuizParams{
		QuestionType:    domain.QuestionType(strings.ToLower(strings.TrimSpace(value("questionType")))),
		DifficultyLevel: domain.Difficulty(strings.ToLower(strings.TrimSpace(value("difficultyLevel")))),
		AdditionalNotes: strings.TrimSpace(value("additionalNotes")),
		CourseID:        strings.TrimSpace(value("courseId")),
		CourseArea:      strings.TrimSpace(value("courseArea")),
	}

	raw := strings.TrimSpace(value("numberOfQuestions"))
	switch n, err := strconv.Atoi(raw); {
	case raw == "":
		errors = append(errors, domain.NewMissingFieldError("numberOfQuestions"))
	case err != nil:
		errors = append(errors, domain.NewInvalidFormatError("numberOfQuestions", raw))
	default:
		params.NumberOfQuestions = n
	}

	if len(params.AdditionalNotes) > maxAdditionalNotes {
		errors = append(errors, domain.NewOutOfRangeError("additionalNotes", len(params.AdditionalNotes), 0, maxAdditionalNotes))
	}
	if len(errors) > 0 {
		return params, errors
	}
	return params, params.Validate()
}

// ValidateJobID checks a job id taken from the query string.
func (v *Validator) ValidateJobID(jobID string) domain.ValidationErrors {
	if strings.TrimSpace(jobID) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("jobId")}
	}
	if !util.IsULID(jobID) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("jobId", jobID)}
	}
	return nil
}
