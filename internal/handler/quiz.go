package handler

import (
	"io"
	"mime/multipart"

	"glauk-api/internal/domain"
	"glauk-api/internal/logger"
	"glauk-api/internal/middleware"
	"glauk-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const uploadField = "file"

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service service.QuizProcessService
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizProcessService) *QuizHandler {
	return &QuizHandler{
		service: service,
	}
}

// AddQuizProcess godoc
// @Summary Submit a document for quiz generation
// @Description Accepts a PDF or PPTX, checks credits, stores the file and queues a quiz job. The quiz is produced in the background.
// @Tags quiz
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "PDF or PPTX document"
// @Param numberOfQuestions formData int true "Number of questions (1-100)"
// @Param questionType formData string true "multiple_choice, true_false, short_answer or fill_in_the_blank"
// @Param difficultyLevel formData string true "easy, medium or hard"
// @Param courseId formData string true "Course the questions are saved under"
// @Param courseArea formData string false "Subject area of the course"
// @Param additionalNotes formData string false "Extra instructions for the quiz"
// @Success 202 {object} dto.QuizProcessResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 412 {object} middleware.ErrorResponse
// @Failure 413 {object} middleware.ErrorResponse
// @Failure 415 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Router /api/quiz/add-quiz-process [post]
func (h *QuizHandler) AddQuizProcess(c *fiber.Ctx) error {
	email := middleware.CallerEmail(c)
	if email == "" {
		return domain.NewUnauthorizedError("missing caller identity")
	}
	params, ok := middleware.QuizParams(c)
	if !ok {
		return domain.NewInternalError("quiz options were not validated", nil)
	}

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		return domain.NewBadInputError("file is required")
	}
	doc, err := readUpload(fileHeader)
	if err != nil {
		logger.Get().Error("Failed to read uploaded file", zap.Error(err), zap.String("filename", fileHeader.Filename))
		return domain.NewBadInputError("file could not be read")
	}

	resp, err := h.service.Submit(c.UserContext(), email, doc, params)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// GetQuizJobStatus godoc
// @Summary Get quiz job status
// @Description Reports state, progress and, once finished, the result or error of a job owned by the caller
// @Tags quiz
// @Produce json
// @Security ApiKeyAuth
// @Param jobId query string true "Job ID (ULID)"
// @Success 200 {object} dto.QuizJobStatusResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/quiz/quiz-job-status [get]
func (h *QuizHandler) GetQuizJobStatus(c *fiber.Ctx) error {
	email := middleware.CallerEmail(c)
	if email == "" {
		return domain.NewUnauthorizedError("missing caller identity")
	}
	jobID, _ := c.Locals(middleware.ValidatedJobIDKey).(string)
	if jobID == "" {
		jobID = c.Query("jobId")
	}

	status, err := h.service.GetJobStatus(c.UserContext(), email, jobID)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func readUpload(fh *multipart.FileHeader) (*domain.UploadedDocument, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &domain.UploadedDocument{
		Data:     data,
		MIMEType: fh.Header.Get(fiber.HeaderContentType),
		Filename: fh.Filename,
	}, nil
}
