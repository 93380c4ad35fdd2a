package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	_ "glauk-api/cmd/api/docs"
	"glauk-api/internal/config"
	"glauk-api/internal/domain"
	"glauk-api/internal/dto"
	"glauk-api/internal/logger"
	"glauk-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "handler-test-secret"
	testJobID  = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	janeEmail  = "jane@uni.edu"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(config.LoggerConfig{Level: "error"}); err != nil {
		log.Fatalf("Failed to initialize logger for handler tests: %v", err)
	}
	exitCode := m.Run()
	_ = logger.Sync()
	os.Exit(exitCode)
}

type MockQuizProcessService struct {
	mock.Mock
}

func (m *MockQuizProcessService) Submit(ctx context.Context, email string, doc *domain.UploadedDocument, params domain.QuizParams) (*dto.QuizProcessResponse, error) {
	args := m.Called(ctx, email, doc, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuizProcessResponse), args.Error(1)
}

func (m *MockQuizProcessService) GetJobStatus(ctx context.Context, email, jobID string) (*dto.QuizJobStatusResponse, error) {
	args := m.Called(ctx, email, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QuizJobStatusResponse), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCache) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type testServer struct {
	app   *fiber.App
	svc   *MockQuizProcessService
	cache *MockCache
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	auth, err := service.NewAuthService(testSecret, zap.NewNop())
	require.NoError(t, err)
	token, err := auth.CreateJWT(context.Background(), "u1", janeEmail, time.Hour)
	require.NoError(t, err)

	svc := new(MockQuizProcessService)
	cache := new(MockCache)
	app := NewApp(AppOptions{BodyLimit: 4 << 20}, auth, NewQuizHandler(svc), NewHealthHandler(cache))
	return &testServer{app: app, svc: svc, cache: cache, token: token}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func quizForm(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withFile {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="week1.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.7 lecture"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"numberOfQuestions": "10",
		"questionType":      "Multiple_Choice",
		"difficultyLevel":   "easy",
		"courseArea":        "Biology",
	}
}

func TestAddQuizProcess(t *testing.T) {
	s := newTestServer(t)
	s.svc.On("Submit", mock.Anything, janeEmail,
		mock.MatchedBy(func(doc *domain.UploadedDocument) bool {
			return doc.Filename == "week1.pdf" && doc.MIMEType == "application/pdf" && string(doc.Data) == "%PDF-1.7 lecture"
		}),
		domain.QuizParams{
			NumberOfQuestions: 10,
			QuestionType:      domain.QuestionTypeMultipleChoice,
			DifficultyLevel:   domain.DifficultyEasy,
			CourseID:          "c1",
			CourseArea:        "Biology",
		}).
		Return(&dto.QuizProcessResponse{JobID: testJobID, Status: "queued", Message: "Quiz generation started", SourceURL: "https://cdn/x.pdf"}, nil)

	body, contentType := quizForm(t, validFields(), true)
	req := httptest.NewRequest(http.MethodPost, "/api/quiz/add-quiz-process?courseId=c1", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, out := s.do(t, req)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, testJobID, out["jobId"])
	assert.Equal(t, "queued", out["status"])
	s.svc.AssertExpectations(t)
}

func TestAddQuizProcess_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		withFile   bool
		auth       bool
		submitErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "no token", fields: validFields(), withFile: true, wantStatus: 401, wantCode: string(domain.CodeUnauthorized)},
		{name: "missing course", fields: validFields(), withFile: true, auth: true, wantStatus: 400, wantCode: string(domain.CodeValidation)},
		{
			name:   "bad question count",
			fields: map[string]string{"numberOfQuestions": "ten", "questionType": "true_false", "difficultyLevel": "hard", "courseId": "c1"},
			auth:   true, withFile: true, wantStatus: 400, wantCode: string(domain.CodeValidation),
		},
		{name: "missing file", fields: withCourse(validFields()), auth: true, wantStatus: 400, wantCode: string(domain.CodeBadInput)},
		{
			name: "unsupported type", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: domain.NewUnsupportedMediaTypeError("image/png"), wantStatus: 415, wantCode: string(domain.CodeUnsupportedMediaType),
		},
		{
			name: "insufficient credits", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: domain.NewPreconditionFailedError("insufficient credits"), wantStatus: 412, wantCode: string(domain.CodePreconditionFailed),
		},
		{
			name: "no text", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: domain.NewNoContentError(), wantStatus: 422, wantCode: string(domain.CodeNoContent),
		},
		{
			name: "storage down", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: domain.NewStorageUploadFailedError(errors.New("503")), wantStatus: 502, wantCode: string(domain.CodeStorageUploadFailed),
		},
		{
			name: "duplicate in flight", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: domain.NewError(domain.CodeConflict, "identical submission in progress", nil), wantStatus: 409, wantCode: string(domain.CodeConflict),
		},
		{
			name: "unexpected error", fields: withCourse(validFields()), withFile: true, auth: true,
			submitErr: errors.New("boom"), wantStatus: 500, wantCode: string(domain.CodeInternal),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.submitErr != nil {
				s.svc.On("Submit", mock.Anything, janeEmail, mock.Anything, mock.Anything).Return(nil, tt.submitErr)
			}

			body, contentType := quizForm(t, tt.fields, tt.withFile)
			req := httptest.NewRequest(http.MethodPost, "/api/quiz/add-quiz-process", body)
			req.Header.Set("Content-Type", contentType)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+s.token)
			}

			resp, out := s.do(t, req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, out["code"])
			if tt.submitErr == nil {
				s.svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func withCourse(fields map[string]string) map[string]string {
	fields["courseId"] = "c1"
	return fields
}

func TestGetQuizJobStatus(t *testing.T) {
	s := newTestServer(t)
	s.svc.On("GetJobStatus", mock.Anything, janeEmail, testJobID).Return(&dto.QuizJobStatusResponse{
		JobID:    testJobID,
		State:    "completed",
		Progress: 100,
		Result:   json.RawMessage(`{"success":true}`),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/quiz/quiz-job-status?jobId="+testJobID, nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, out := s.do(t, req)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", out["state"])
	assert.EqualValues(t, 100, out["progress"])
	assert.Equal(t, map[string]interface{}{"success": true}, out["result"])
}

func TestGetQuizJobStatus_Errors(t *testing.T) {
	t.Run("unknown job", func(t *testing.T) {
		s := newTestServer(t)
		s.svc.On("GetJobStatus", mock.Anything, janeEmail, testJobID).Return(nil, domain.NewNotFoundError("job not found"))

		req := httptest.NewRequest(http.MethodGet, "/api/quiz/quiz-job-status?jobId="+testJobID, nil)
		req.Header.Set("Authorization", "Bearer "+s.token)
		resp, out := s.do(t, req)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, string(domain.CodeNotFound), out["code"])
	})

	for _, jobID := range []string{"", "not-a-job"} {
		t.Run(fmt.Sprintf("invalid id %q", jobID), func(t *testing.T) {
			s := newTestServer(t)
			req := httptest.NewRequest(http.MethodGet, "/api/quiz/quiz-job-status?jobId="+jobID, nil)
			req.Header.Set("Authorization", "Bearer "+s.token)
			resp, _ := s.do(t, req)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			s.svc.AssertNotCalled(t, "GetJobStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("expired token", func(t *testing.T) {
		s := newTestServer(t)
		auth, err := service.NewAuthService(testSecret, zap.NewNop())
		require.NoError(t, err)
		expired, err := auth.CreateJWT(context.Background(), "u1", janeEmail, -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/quiz/quiz-job-status?jobId="+testJobID, nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		resp, _ := s.do(t, req)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.cache.On("Ping", mock.Anything).Return(nil).Once()
	s.cache.On("Ping", mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

	resp, out := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", out["redis"])

	resp, out = s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "down", out["redis"])
}

func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "2.0", out["swagger"])

	paths, ok := out["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/quiz/add-quiz-process")
	assert.Contains(t, paths, "/api/quiz/quiz-job-status")
	assert.Contains(t, paths, "/health")
}
