package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"glauk-api/internal/cache"
	"glauk-api/internal/domain"
	"glauk-api/internal/dto"

	"go.uber.org/zap"
)

const pendingSubmission = "pending"

// DocumentExtractor validates an upload, reads its text and stores the original.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc *domain.UploadedDocument, requester string) (*domain.ExtractedText, error)
}

// TextChunker splits extracted text into pieces small enough for one call.
type TextChunker interface {
	Chunk(text string) []string
}

// QuizProcessService is the request side of quiz generation: it admits and
// prepares a document, then hands the work to the queue.
type QuizProcessService interface {
	Submit(ctx context.Context, email string, doc *domain.UploadedDocument, params domain.QuizParams) (*dto.QuizProcessResponse, error)
	GetJobStatus(ctx context.Context, email, jobID string) (*dto.QuizJobStatusResponse, error)
}

type quizProcessService struct {
	users     domain.UserRepository
	courses   domain.CourseRepository
	credits   *CreditGate
	extractor DocumentExtractor
	chunker   TextChunker
	queue     domain.JobQueue
	cache     domain.Cache
	dedupeTTL time.Duration
	logger    *zap.Logger
}

// NewQuizProcessService wires the submission path. cache may be nil, which
// turns duplicate detection off.
func NewQuizProcessService(
	users domain.UserRepository,
	courses domain.CourseRepository,
	credits *CreditGate,
	extractor DocumentExtractor,
	chunker TextChunker,
	queue domain.JobQueue,
	cache domain.Cache,
	dedupeTTL time.Duration,
	logger *zap.Logger,
) QuizProcessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &quizProcessService{
		users:     users,
		courses:   courses,
		credits:   credits,
		extractor: extractor,
		chunker:   chunker,
		queue:     queue,
		cache:     cache,
		dedupeTTL: dedupeTTL,
		logger:    logger,
	}
}

// Submit checks, in order: params, user, course ownership, credits. Only then
// is the document extracted, stored and chunked and the job enqueued.
func (s *quizProcessService) Submit(ctx context.Context, email string, doc *domain.UploadedDocument, params domain.QuizParams) (*dto.QuizProcessResponse, error) {
	if verrs := params.Validate(); len(verrs) > 0 {
		return nil, verrs
	}
	if doc == nil || len(doc.Data) == 0 {
		return nil, domain.NewBadInputError("file is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError("user not found").WithContext("email", email)
	}

	course, err := s.courses.GetCourseByID(ctx, params.CourseID)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up course", err)
	}
	if course == nil || course.UserID != user.ID {
		return nil, domain.NewNotFoundError("course not found").WithContext("courseId", params.CourseID)
	}

	if err := s.credits.Admit(ctx, email, params.NumberOfQuestions); err != nil {
		return nil, err
	}

	dedupeKey := s.dedupeKey(email, doc, params)
	if existing, err := s.claimSubmission(ctx, dedupeKey); err != nil || existing != nil {
		return existing, err
	}

	resp, err := s.prepareAndEnqueue(ctx, email, doc, params)
	if err != nil {
		s.releaseSubmission(ctx, dedupeKey)
		return nil, err
	}
	if dedupeKey != "" {
		if err := s.cache.Set(ctx, dedupeKey, resp.JobID, s.dedupeTTL); err != nil {
			s.logger.Warn("Failed to record submission", zap.String("job_id", resp.JobID), zap.Error(err))
		}
	}
	return resp, nil
}

func (s *quizProcessService) prepareAndEnqueue(ctx context.Context, email string, doc *domain.UploadedDocument, params domain.QuizParams) (*dto.QuizProcessResponse, error) {
	extracted, err := s.extractor.Extract(ctx, doc, email)
	if err != nil {
		return nil, err
	}

	chunks := s.chunker.Chunk(extracted.RawText)
	if len(chunks) == 0 {
		return nil, domain.NewNoContentError()
	}

	payload := domain.QuizJobPayload{
		Email:             email,
		Chunks:            chunks,
		URL:               extracted.SourceURL,
		NumberOfQuestions: params.NumberOfQuestions,
		QuestionType:      params.QuestionType,
		DifficultyLevel:   params.DifficultyLevel,
		CourseID:          params.CourseID,
		AdditionalNotes:   params.AdditionalNotes,
		CourseArea:        params.CourseArea,
	}
	handle, err := s.queue.Enqueue(ctx, domain.ProcessQuizJobName, email, payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Quiz job submitted",
		zap.String("job_id", handle.ID),
		zap.String("email", email),
		zap.Int("chunks", len(chunks)),
		zap.Int("questions", params.NumberOfQuestions))

	return &dto.QuizProcessResponse{
		JobID:     handle.ID,
		Status:    string(handle.State),
		Message:   "Quiz generation started",
		SourceURL: extracted.SourceURL,
	}, nil
}

// dedupeKey identifies a submission by user, file content and options.
func (s *quizProcessService) dedupeKey(email string, doc *domain.UploadedDocument, p domain.QuizParams) string {
	if s.cache == nil || s.dedupeTTL <= 0 {
		return ""
	}
	h := sha256.New()
	h.Write(doc.Data)
	fmt.Fprintf(h, "|%d|%s|%s|%s|%s|%s", p.NumberOfQuestions, p.QuestionType, p.DifficultyLevel, p.CourseID, p.CourseArea, p.AdditionalNotes)
	return cache.GenerateCacheKey("quiz", "submission", email, hex.EncodeToString(h.Sum(nil))[:32])
}

// claimSubmission returns the existing job for a repeated submission, a
// Conflict while the first one is still being prepared, or nil when the
// caller should go ahead. A failed or expired earlier job does not count. Cache failures never block a submission.
func (s *quizProcessService) claimSubmission(ctx context.Context, key string) (*dto.QuizProcessResponse, error) {
	if key == "" {
		return nil, nil
	}
	claimed, err := s.cache.SetNX(ctx, key, pendingSubmission, s.dedupeTTL)
	if err != nil {
		s.logger.Warn("Submission dedupe unavailable", zap.Error(err))
		return nil, nil
	}
	if claimed {
		return nil, nil
	}

	jobID, err := s.cache.Get(ctx, key)
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("Submission dedupe unavailable", zap.Error(err))
		return nil, nil
	}
	if jobID == pendingSubmission {
		return nil, domain.NewError(domain.CodeConflict, "an identical submission is already being processed", nil)
	}

	status := string(domain.JobStateQueued)
	st, err := s.queue.Status(ctx, jobID)
	switch {
	case domain.IsCode(err, domain.CodeNotFound), err == nil && st.State == domain.JobStateFailed:
		s.logger.Info("Earlier identical job failed or expired, submitting again", zap.String("job_id", jobID))
		return s.reclaimSubmission(ctx, key)
	case err == nil:
		status = string(st.State)
	}
	s.logger.Info("Duplicate submission, returning existing job", zap.String("job_id", jobID))
	return &dto.QuizProcessResponse{
		JobID:   jobID,
		Status:  status,
		Message: "Identical submission already accepted",
	}, nil
}

// reclaimSubmission drops a key that points at a dead job and claims it for
// the current request.
func (s *quizProcessService) reclaimSubmission(ctx context.Context, key string) (*dto.QuizProcessResponse, error) {
	s.releaseSubmission(ctx, key)
	claimed, err := s.cache.SetNX(ctx, key, pendingSubmission, s.dedupeTTL)
	if err != nil {
		s.logger.Warn("Submission dedupe unavailable", zap.Error(err))
		return nil, nil
	}
	if !claimed {
		return nil, domain.NewError(domain.CodeConflict, "an identical submission is already being processed", nil)
	}
	return nil, nil
}

func (s *quizProcessService) releaseSubmission(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to release submission key", zap.Error(err))
	}
}

// GetJobStatus hides jobs owned by someone else behind NotFound.
func (s *quizProcessService) GetJobStatus(ctx context.Context, email, jobID string) (*dto.QuizJobStatusResponse, error) {
	if jobID == "" {
		return nil, domain.NewBadInputError("jobId is required")
	}
	st, err := s.queue.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if st.Owner != email {
		return nil, domain.NewNotFoundError("job not found").WithContext("jobId", jobID)
	}
	return &dto.QuizJobStatusResponse{
		JobID:      st.ID,
		State:      string(st.State),
		Progress:   st.Progress,
		Result:     st.Result,
		Error:      st.Error,
		Attempts:   st.Attempts,
		CreatedAt:  st.CreatedAt,
		FinishedAt: st.FinishedAt,
	}, nil
}
