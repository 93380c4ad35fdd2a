package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"glauk-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func quizJob(t *testing.T, name string) *domain.Job {
	t.Helper()
	payload, err := json.Marshal(domain.QuizJobPayload{
		Email:             janeEmail,
		Chunks:            []string{"chunk"},
		URL:               "https://cdn/glauk-pdfs/jane-abcde.pdf",
		NumberOfQuestions: 20,
		QuestionType:      domain.QuestionTypeMultipleChoice,
		DifficultyLevel:   domain.DifficultyEasy,
		CourseID:          "c1",
	})
	require.NoError(t, err)
	return &domain.Job{ID: "01JOB", Name: name, Owner: janeEmail, Payload: payload, Attempts: 1}
}

func parsedQuiz(n int) *domain.GeneratedQuiz {
	q := &domain.GeneratedQuiz{}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, domain.QuizQuestion{Question: "Q", Options: []string{"A", "B"}, CorrectAnswer: "A"})
	}
	return q
}

func newTestProcessor(runner QuizRunner, courses *MockCourseRepository, users *MockUserRepository) *QuizJobProcessor {
	p := NewQuizJobProcessor(runner, courses, newTestCreditGate(users), zap.NewNop())
	p.answerID = func(int) (string, error) { return "a1b2c", nil }
	return p
}

func TestQuizJobProcessor_Handle(t *testing.T) {
	runner := new(MockQuizRunner)
	courses := new(MockCourseRepository)
	users := new(MockUserRepository)

	runner.On("Run", mock.Anything, []string{"chunk"}, mock.AnythingOfType("domain.QuizParams"), mock.Anything).
		Return(parsedQuiz(3), "MASTER", nil)
	courses.On("CreateSlide", mock.Anything, mock.AnythingOfType("*domain.CourseSlide")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.CourseSlide).ID = "s1" }).
		Return(nil)
	courses.On("AddQuestion", mock.Anything, mock.MatchedBy(func(q *domain.Question) bool {
		return q.SlideID == "s1" && q.AnswerID == "a1b2c"
	})).Return(nil)
	users.On("DecrementCredits", mock.Anything, janeEmail, 2).Return(nil)

	var progress []int
	out, err := newTestProcessor(runner, courses, users).Handle(context.Background(), quizJob(t, domain.ProcessQuizJobName), func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	result := out.(*domain.QuizResult)
	assert.True(t, result.Success)
	assert.Equal(t, "MASTER", result.Summary)
	assert.Equal(t, "s1", result.SlideID)
	assert.Equal(t, "a1b2c", result.AnswerID)
	assert.Equal(t, 3, result.SavedQuestions)
	assert.Zero(t, result.FailedQuestions)
	assert.Equal(t, 2, result.CreditsCharged)
	assert.Equal(t, []int{progressPersisted}, progress)
	courses.AssertNumberOfCalls(t, "AddQuestion", 3)
}

func TestQuizJobProcessor_PartialQuestionFailure(t *testing.T) {
	runner := new(MockQuizRunner)
	courses := new(MockCourseRepository)
	users := new(MockUserRepository)

	quiz := parsedQuiz(3)
	quiz.Questions[1].Question = "bad"
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(quiz, "MASTER", nil)
	courses.On("CreateSlide", mock.Anything, mock.Anything).Return(nil)
	courses.On("AddQuestion", mock.Anything, mock.MatchedBy(func(q *domain.Question) bool { return q.Text == "bad" })).
		Return(errors.New("ORA-12899: value too large"))
	courses.On("AddQuestion", mock.Anything, mock.Anything).Return(nil)
	users.On("DecrementCredits", mock.Anything, janeEmail, 2).Return(errors.New("db down"))

	out, err := newTestProcessor(runner, courses, users).Handle(context.Background(), quizJob(t, domain.ProcessQuizJobName), nil)
	require.NoError(t, err)

	result := out.(*domain.QuizResult)
	assert.Equal(t, 2, result.SavedQuestions)
	assert.Equal(t, 1, result.FailedQuestions)
	assert.Zero(t, result.CreditsCharged)
}

func TestQuizJobProcessor_RawQuizIsNotPersistedOrCharged(t *testing.T) {
	runner := new(MockQuizRunner)
	courses := new(MockCourseRepository)
	users := new(MockUserRepository)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.GeneratedQuiz{Raw: "not json"}, "MASTER", nil)

	out, err := newTestProcessor(runner, courses, users).Handle(context.Background(), quizJob(t, domain.ProcessQuizJobName), nil)
	require.NoError(t, err)

	result := out.(*domain.QuizResult)
	assert.True(t, result.Success)
	assert.Equal(t, "not json", result.Quiz.Raw)
	courses.AssertNotCalled(t, "CreateSlide", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "DecrementCredits", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuizJobProcessor_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("generation error fails the job", func(t *testing.T) {
		runner := new(MockQuizRunner)
		runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, "", domain.NewRateLimitExceededError(5, errors.New("429")))
		_, err := newTestProcessor(runner, new(MockCourseRepository), new(MockUserRepository)).Handle(ctx, quizJob(t, domain.ProcessQuizJobName), nil)
		assert.True(t, domain.IsCode(err, domain.CodeRateLimitExceeded), "got %v", err)
	})

	t.Run("unknown job name", func(t *testing.T) {
		_, err := newTestProcessor(new(MockQuizRunner), new(MockCourseRepository), new(MockUserRepository)).Handle(ctx, quizJob(t, "resize-image"), nil)
		assert.ErrorContains(t, err, "unknown job name")
	})

	t.Run("bad payload", func(t *testing.T) {
		job := &domain.Job{ID: "01JOB", Name: domain.ProcessQuizJobName, Payload: []byte("{")}
		_, err := newTestProcessor(new(MockQuizRunner), new(MockCourseRepository), new(MockUserRepository)).Handle(ctx, job, nil)
		assert.Error(t, err)
	})

	t.Run("slide failure counts every question", func(t *testing.T) {
		runner := new(MockQuizRunner)
		courses := new(MockCourseRepository)
		users := new(MockUserRepository)
		runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(parsedQuiz(4), "MASTER", nil)
		courses.On("CreateSlide", mock.Anything, mock.Anything).Return(errors.New("ORA-02291"))
		users.On("DecrementCredits", mock.Anything, janeEmail, 2).Return(nil)

		out, err := newTestProcessor(runner, courses, users).Handle(ctx, quizJob(t, domain.ProcessQuizJobName), nil)
		require.NoError(t, err)
		result := out.(*domain.QuizResult)
		assert.Equal(t, 4, result.FailedQuestions)
		assert.Empty(t, result.SlideID)
		courses.AssertNotCalled(t, "AddQuestion", mock.Anything, mock.Anything)
	})
}
