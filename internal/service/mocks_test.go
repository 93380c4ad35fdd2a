package service

import (
	"context"
	"sync"
	"time"

	"glauk-api/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockUserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) DecrementCredits(ctx context.Context, email string, amount int) error {
	return m.Called(ctx, email, amount).Error(0)
}

// --- MockCourseRepository ---
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) GetCourseByID(ctx context.Context, courseID string) (*domain.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *MockCourseRepository) CreateSlide(ctx context.Context, slide *domain.CourseSlide) error {
	return m.Called(ctx, slide).Error(0)
}

func (m *MockCourseRepository) AddQuestion(ctx context.Context, question *domain.Question) error {
	return m.Called(ctx, question).Error(0)
}

// --- MockJobQueue ---
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Enqueue(ctx context.Context, jobName, owner string, payload interface{}) (*domain.JobHandle, error) {
	args := m.Called(ctx, jobName, owner, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobHandle), args.Error(1)
}

func (m *MockJobQueue) Lease(ctx context.Context, wait time.Duration) (*domain.Job, error) {
	args := m.Called(ctx, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobQueue) Extend(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockJobQueue) Progress(ctx context.Context, jobID string, pct int) error {
	return m.Called(ctx, jobID, pct).Error(0)
}

func (m *MockJobQueue) Complete(ctx context.Context, jobID string, result interface{}) error {
	return m.Called(ctx, jobID, result).Error(0)
}

func (m *MockJobQueue) Fail(ctx context.Context, jobID string, cause error) error {
	return m.Called(ctx, jobID, cause).Error(0)
}

func (m *MockJobQueue) ReclaimExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockJobQueue) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobStatus), args.Error(1)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- MockExtractor ---
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, doc *domain.UploadedDocument, requester string) (*domain.ExtractedText, error) {
	args := m.Called(ctx, doc, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedText), args.Error(1)
}

// --- MockQuizRunner ---
type MockQuizRunner struct {
	mock.Mock
}

func (m *MockQuizRunner) Run(ctx context.Context, chunks []string, params domain.QuizParams, progress domain.ProgressFunc) (*domain.GeneratedQuiz, string, error) {
	args := m.Called(ctx, chunks, params, progress)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*domain.GeneratedQuiz), args.String(1), args.Error(2)
}

// scriptedLLM answers completion requests by system prompt prefix and
// records every request it sees.
type scriptedLLM struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	respond  func(req domain.CompletionRequest) (string, error)
}

func (s *scriptedLLM) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	content, err := s.respond(req)
	if err != nil {
		return nil, err
	}
	return &domain.CompletionResponse{Content: content}, nil
}

func (s *scriptedLLM) calls() []domain.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CompletionRequest(nil), s.requests...)
}

type stubChunker struct{ chunks []string }

func (s stubChunker) Chunk(string) []string { return s.chunks }
